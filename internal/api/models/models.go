package models

import (
	"time"
)

// User is the authenticated principal of a request, resolved from the session.
type User struct {
	Identifier  string `json:"usn"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	IsAdmin     bool   `json:"isAdmin"`
	GravatarURL string `json:"gravatarUrl,omitempty"`
}

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
	Phone string `json:"phone" form:"phone"`
	USN   string `json:"usn" form:"usn"`
	Pass  string `json:"pass" form:"pass"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	USN  string `json:"usn" form:"usn"`
	Pass string `json:"pass" form:"pass"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	OK      bool   `json:"ok"`
	USN     string `json:"usn"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

// MeResponse describes the current session.
type MeResponse struct {
	OK       bool `json:"ok"`
	User     User `json:"user"`
	HasVoted bool `json:"hasVoted"`
}

// VoteRequest is the body of POST /api/vote.
type VoteRequest struct {
	Candidate string `json:"candidate" form:"candidate"`
}

// VoteResponse is returned after a vote was recorded.
type VoteResponse struct {
	OK     bool      `json:"ok"`
	CastAt time.Time `json:"castAt"`
}

// CreateCandidateRequest holds the non-file fields of POST /api/candidates.
type CreateCandidateRequest struct {
	Name      string `form:"name" json:"name"`
	Role      string `form:"role" json:"role"`
	SymbolURL string `form:"symbol_url" json:"symbol_url"`
}

// Candidate is a candidate as shown on the ballot.
type Candidate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	SymbolURL string    `json:"symbol_url"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateCandidateResponse is returned after a candidate was created.
type CreateCandidateResponse struct {
	OK        bool      `json:"ok"`
	ID        string    `json:"id"`
	Candidate Candidate `json:"candidate"`
}

// ResultRow is the vote count of a candidate.
type ResultRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	SymbolURL string `json:"symbol_url"`
	Votes     int    `json:"votes"`
}

// OKResponse is the body of successful requests without payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
