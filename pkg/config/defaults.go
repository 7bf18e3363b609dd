package config

// DefaultConfigFileName is the on-disk config file Initialize loads
// from the configured directory, analogous to the teacher's
// tarsy.yaml / llm-providers.yaml pair collapsed into a single file
// since spec.md §6 names one flat config surface, not several
// component registries.
const DefaultConfigFileName = "novelforge.yaml"
