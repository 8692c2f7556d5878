// Package web provides HTTP request and response types for the facilitator API.
package web

import (
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/services"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CreateSessionRequest starts a session from a library workshop or from an
// inline one.
type CreateSessionRequest struct {
	WorkshopID string           `json:"workshop_id,omitempty" validate:"required_without=Workshop"`
	Workshop   *models.Workshop `json:"workshop,omitempty"    validate:"-"`
}

// AddTimeRequest shifts a block's accumulated seconds by Delta. When Limit
// is set the result is clamped to [0, Limit].
type AddTimeRequest struct {
	Delta int  `json:"delta" validate:"required"`
	Limit *int `json:"limit,omitempty" validate:"omitempty,min=0"`
}

// JoinRequest is what a participant submits. The code may also come from
// the ?code= query parameter.
type JoinRequest struct {
	Code          string `json:"code"                     validate:"omitempty,len=6"`
	Name          string `json:"name"                     validate:"max=80"`
	ParticipantID string `json:"participant_id,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
}

// ToService converts the request for the session service.
func (r JoinRequest) ToService() services.JoinRequest {
	return services.JoinRequest{
		Code:          r.Code,
		Name:          r.Name,
		ParticipantID: r.ParticipantID,
		Avatar:        r.Avatar,
	}
}

// JoinResponse returns the joined session and the participant's identity.
type JoinResponse struct {
	SessionID   string              `json:"session_id"`
	Title       string              `json:"title"`
	Participant *models.Participant `json:"participant"`
}

// UpdateParticipantRequest represents a partial participant update.
type UpdateParticipantRequest struct {
	Name   *string                   `json:"name,omitempty"   validate:"omitempty,max=80"`
	Status *models.ParticipantStatus `json:"status,omitempty" validate:"omitempty,oneof=thinking finished help-needed"`
}

// ToService converts the request for the session service.
func (r UpdateParticipantRequest) ToService() services.ParticipantUpdate {
	return services.ParticipantUpdate{Name: r.Name, Status: r.Status}
}

// SessionSummary is the list view of a session.
type SessionSummary struct {
	ID               string               `json:"id"`
	WorkshopID       string               `json:"workshop_id"`
	Title            string               `json:"title"`
	Status           models.SessionStatus `json:"status"`
	JoinCode         string               `json:"join_code"`
	IsRunning        bool                 `json:"is_running"`
	ElapsedTime      int                  `json:"elapsed_time"`
	ParticipantCount int                  `json:"participant_count"`
}

// TransformSessionSummary trims a session down to its list view.
func TransformSessionSummary(session *models.Session) SessionSummary {
	return SessionSummary{
		ID:               session.ID,
		WorkshopID:       session.WorkshopID,
		Title:            session.Title,
		Status:           session.Status,
		JoinCode:         session.JoinCode,
		IsRunning:        session.IsRunning,
		ElapsedTime:      session.ElapsedTime,
		ParticipantCount: len(session.Participants),
	}
}
