package v1

import (
	"net/http"

	"github.com/tinoosan/groupledger/internal/ledger"
)

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	g, _, ok := s.memberGroup(w, r)
	if !ok {
		return
	}
	roles, err := s.roles.List(r.Context(), g.ID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, rl := range roles {
		out = append(out, toRoleResponse(rl))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, ok := s.managedGroup(w, r)
	if !ok {
		return
	}
	created, err := s.roles.Create(r.Context(), g.ID, req.apply(ledger.Role{}))
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toRoleResponse(created))
}

// updateRole handles PATCH /v1/groups/{groupID}/roles/{roleID}. Flags left out keep their value.
func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, ok := s.managedGroup(w, r)
	if !ok {
		return
	}
	roleID, ok := uuidParam(w, r, "roleID")
	if !ok {
		return
	}
	current, err := s.roles.Get(r.Context(), g.ID, roleID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	updated, err := s.roles.Update(r.Context(), g.ID, roleID, req.apply(current), req.Version)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	// members holding the role see the new flags on their next resolution
	sessionFrom(r).Refresh()
	toJSON(w, http.StatusOK, toRoleResponse(updated))
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	g, ok := s.managedGroup(w, r)
	if !ok {
		return
	}
	roleID, ok := uuidParam(w, r, "roleID")
	if !ok {
		return
	}
	if err := s.roles.Delete(r.Context(), g.ID, roleID); err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
