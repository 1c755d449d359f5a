package dubbing

// StartSessionRequest is the payload for starting a dubbing session. An
// omitted credit_method lets the backend pick the cheapest available one.
type StartSessionRequest struct {
	TranscriptID string `json:"transcript_id" validate:"required,uuid"`
	CharacterID  string `json:"character_id" validate:"required"`
	CreditMethod string `json:"credit_method" validate:"omitempty,oneof=free ad credit"`
}

// CollaborativeMixRequest is the payload for mixing several sessions together
type CollaborativeMixRequest struct {
	TranscriptID string   `json:"transcript_id" validate:"required,uuid"`
	SessionIDs   []string `json:"session_ids" validate:"required,min=1,dive,uuid"`
}
