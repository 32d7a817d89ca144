package api

import (
	"net/http"

	"github.com/Sternrassler/workout-api/pkg/pagination"
	"github.com/Sternrassler/workout-api/pkg/records"
	"github.com/Sternrassler/workout-api/pkg/workout"
)

// Users

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u workout.User
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.CreateUser(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var upd workout.UserUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	if upd.Empty() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "update changes no field"})
		return
	}
	u, err := s.svc.UpdateUser(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listSeances(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.ListSeances(r.Context(), r.PathValue("id"), pagination.FromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) listSets(w http.ResponseWriter, r *http.Request) {
	f, err := setFilter(r.PathValue("id"), r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.ListSets(r.Context(), f, pagination.FromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) personalRecords(w http.ResponseWriter, r *http.Request) {
	f, err := setFilter(r.PathValue("id"), r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.svc.PersonalRecords(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) topExercises(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	top, err := s.svc.TopExercises(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) topFormats(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	top, err := s.svc.TopFormats(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Seances

func (s *Server) createSeance(w http.ResponseWriter, r *http.Request) {
	var se workout.Seance
	if err := decodeJSON(w, r, &se); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.CreateSeance(r.Context(), se)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getSeance(w http.ResponseWriter, r *http.Request) {
	se, err := s.svc.GetSeance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, se)
}

func (s *Server) deleteSeance(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSeance(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordSet(w http.ResponseWriter, r *http.Request) {
	var set records.Set
	if err := decodeJSON(w, r, &set); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.RecordSet(r.Context(), r.PathValue("id"), set)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Comments and reactions

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.svc.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var c workout.Comment
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.SeanceID = r.PathValue("id")
	created, err := s.svc.AddComment(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listReactions(w http.ResponseWriter, r *http.Request) {
	reactions, err := s.svc.ListReactions(r.Context(), r.PathValue("id"), r.URL.Query().Get("comment"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reactions)
}

func (s *Server) addReaction(w http.ResponseWriter, r *http.Request) {
	var re workout.Reaction
	if err := decodeJSON(w, r, &re); err != nil {
		writeError(w, r, err)
		return
	}
	re.SeanceID = r.PathValue("id")
	created, err := s.svc.AddReaction(r.Context(), re)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Follows and notifications

func (s *Server) follow(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.Follow(r.Context(), r.PathValue("id"), r.PathValue("target"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Unfollow(r.Context(), r.PathValue("id"), r.PathValue("target")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listFollowers(w http.ResponseWriter, r *http.Request) {
	followers, err := s.svc.ListFollowers(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, followers)
}

func (s *Server) listFollowing(w http.ResponseWriter, r *http.Request) {
	following, err := s.svc.ListFollowing(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, following)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.ListNotifications(r.Context(), r.PathValue("id"), pagination.FromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.MarkNotificationRead(r.Context(), r.PathValue("id"), r.PathValue("nid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
