package v1

import (
	"net/http"

	"github.com/tinoosan/groupledger/internal/service/membership"
)

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	g, perms, ok := s.memberGroup(w, r)
	if !ok {
		return
	}
	views, err := s.members.List(r.Context(), g.ID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := make([]memberResponse, 0, len(views))
	for _, v := range views {
		m := toMemberViewResponse(v, g)
		m.CanManage = membership.CanManageMember(perms, g, v.Member)
		out = append(out, m)
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, ok := s.managedGroup(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)
	m, err := s.members.Add(r.Context(), sess.UserID, g.ID, req.UserID, req.RoleID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	sess.Refresh()
	toJSON(w, http.StatusCreated, toMemberResponse(m, g))
}

// updateMember handles PATCH /v1/groups/{groupID}/members/{memberID}: role changes only.
func (s *Server) updateMember(w http.ResponseWriter, r *http.Request) {
	var req memberPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, ok := s.managedGroup(w, r)
	if !ok {
		return
	}
	memberID, ok := uuidParam(w, r, "memberID")
	if !ok {
		return
	}
	sess := sessionFrom(r)
	m, err := s.members.ChangeRole(r.Context(), sess.UserID, g.ID, memberID, req.RoleID, req.Version)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	sess.Refresh()
	toJSON(w, http.StatusOK, toMemberResponse(m, g))
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	g, ok := s.managedGroup(w, r)
	if !ok {
		return
	}
	memberID, ok := uuidParam(w, r, "memberID")
	if !ok {
		return
	}
	sess := sessionFrom(r)
	if err := s.members.Remove(r.Context(), sess.UserID, g.ID, memberID); err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	sess.Refresh()
	w.WriteHeader(http.StatusNoContent)
}
