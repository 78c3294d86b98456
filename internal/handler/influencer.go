package handler

import "net/http"

func (s *Server) handleInfluencerProfile(w http.ResponseWriter, r *http.Request) {
	inf, err := s.influencers.Profile(r.Context(), sessionFrom(r).ProfileID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inf)
}

func (s *Server) handleInfluencerLink(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"link": s.influencers.Link(sessionFrom(r).ProfileID),
	})
}

func (s *Server) handleCreditLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.History(r.Context(), sessionFrom(r).ProfileID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"creditLogs": entries})
}
