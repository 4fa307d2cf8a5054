package http

import (
	"fmt"
	"net/http"

	"ecotrack/internal/core"
	"ecotrack/internal/log"
	"ecotrack/internal/services"
)

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	board, err := s.deps.Challenges.Board(r.Context(), userID(r))
	if err != nil {
		errorResponse(r, err, "", log.OpList).Write(w)
		return
	}
	NewReply().JSON(board).Write(w)
}

func (s *Server) handleStartChallenge(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	uc, err := s.deps.Challenges.Start(r.Context(), userID(r), id)
	if err != nil {
		errorResponse(r, err, "", log.OpCreate).Write(w)
		return
	}
	NewReply().
		Status(http.StatusCreated).
		TriggerChallengeUpdated(id, string(core.InProgress)).
		TriggerSuccessNotification("Challenge started. Good luck!").
		JSON(uc).
		Write(w)
}

func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	c, err := s.deps.Challenges.Complete(r.Context(), userID(r), id)
	if err != nil {
		errorResponse(r, err, "", log.OpUpdate).Write(w)
		return
	}
	NewReply().
		TriggerChallengeUpdated(id, string(core.Completed)).
		TriggerLeaderboardRefresh().
		TriggerSuccessNotification(fmt.Sprintf("Challenge completed! +%d points", c.Points)).
		JSON(map[string]any{"challenge": c, "status": core.Completed}).
		Write(w)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Challenges.Leaderboard(r.Context())
	if err != nil {
		errorResponse(r, err, "", log.OpList).Write(w)
		return
	}
	if entries == nil {
		entries = []services.LeaderboardEntry{}
	}
	NewReply().JSON(map[string]any{"leaderboard": entries}).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	profile, err := s.deps.Challenges.UpdateProfile(r.Context(), userID(r), p.Get("username"))
	if err != nil {
		errorResponse(r, err, "", log.OpUpdate).Write(w)
		return
	}
	NewReply().
		TriggerLeaderboardRefresh().
		TriggerSuccessNotification("Profile updated").
		JSON(profile).
		Write(w)
}

func (s *Server) handleCreateInquiry(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	inq, err := s.deps.Inquiries.Submit(r.Context(), ParseInquiry(p))
	if err != nil {
		errorResponse(r, err, "", log.OpCreate).Write(w)
		return
	}
	NewReply().
		Status(http.StatusCreated).
		TriggerFormReset().
		TriggerSuccessNotification("Thanks! We'll be in touch soon.").
		JSON(map[string]string{"id": inq.ID}).
		Write(w)
}
