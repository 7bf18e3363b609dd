package api

// SubmitFormRequest is the HTTP request body for POST /api/v1/sessions
// (spec.md §4.5 "questions-generation-start"): the initial book form.
type SubmitFormRequest struct {
	LLMModel       string `json:"llm_model"`
	Plot           string `json:"plot"`
	Genre          string `json:"genre,omitempty"`
	Subgenre       string `json:"subgenre,omitempty"`
	Style          string `json:"style,omitempty"`
	Author         string `json:"author,omitempty"`
	UserName       string `json:"user_name,omitempty"`
	Theme          string `json:"theme,omitempty"`
	Protagonist    string `json:"protagonist,omitempty"`
	POV            string `json:"pov,omitempty"`
	NarrativeVoice string `json:"narrative_voice,omitempty"`
	Pace           string `json:"pace,omitempty"`
	Realism        string `json:"realism,omitempty"`
}

// QuestionAnswerRequest pairs a preliminary question id with an
// optional answer; an absent answer means the question was skipped
// (spec.md §3).
type QuestionAnswerRequest struct {
	QuestionID string  `json:"question_id"`
	Answer     *string `json:"answer,omitempty"`
}

// SubmitAnswersRequest is the HTTP request body for POST
// /api/v1/sessions/:id/answers, which starts draft generation.
// PreviousDraft/UserFeedback are set on a redraft request (regenerating
// the draft in response to the user's own edits/feedback); both are
// empty on the first draft.
type SubmitAnswersRequest struct {
	Answers       []QuestionAnswerRequest `json:"answers"`
	PreviousDraft string                  `json:"previous_draft,omitempty"`
	UserFeedback  string                  `json:"user_feedback,omitempty"`
}

// UpdateOutlineRequest is the HTTP request body for PUT
// /api/v1/sessions/:id/outline (spec.md §8 "Outline freeze").
type UpdateOutlineRequest struct {
	Text           string `json:"text"`
	AllowIfWriting bool   `json:"allow_if_writing,omitempty"`
}
