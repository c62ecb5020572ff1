package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
)

// uuidParam reads a path parameter as a UUID, writing a 400 when it is malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// me handles GET /v1/users/me: the caller's profile and their groups with effective permissions.
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	u, err := s.users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	access, err := s.members.GroupsForUser(r.Context(), sess.UserID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	resp := meResponse{User: toUserResponse(u), Groups: make([]groupAccessResponse, 0, len(access))}
	for _, gp := range access {
		resp.Groups = append(resp.Groups, toGroupAccess(gp))
	}
	toJSON(w, http.StatusOK, resp)
}

// permissionMatrix handles GET /v1/permissions.
func (s *Server) permissionMatrix(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, map[string]any{"groups": permission.Groups()})
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	g, err := s.groups.Create(r.Context(), sess.UserID, req.Name, req.Description)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	sess.Refresh()
	toJSON(w, http.StatusCreated, toGroupResponse(g))
}

// listGroups handles GET /v1/groups. Each entry carries the caller's role and permissions.
func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	access, err := s.members.GroupsForUser(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := make([]groupAccessResponse, 0, len(access))
	for _, gp := range access {
		out = append(out, toGroupAccess(gp))
	}
	toJSON(w, http.StatusOK, out)
}

// memberGroup loads the group after checking the caller belongs to it.
func (s *Server) memberGroup(w http.ResponseWriter, r *http.Request) (ledger.Group, permission.Set, bool) {
	gid, ok := uuidParam(w, r, "groupID")
	if !ok {
		return ledger.Group{}, 0, false
	}
	perms, err := sessionFrom(r).Permissions(r.Context(), gid)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return ledger.Group{}, 0, false
	}
	g, err := s.groups.Get(r.Context(), gid)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return ledger.Group{}, 0, false
	}
	return g, perms, true
}

// managedGroup is memberGroup plus the ManageGroup capability.
func (s *Server) managedGroup(w http.ResponseWriter, r *http.Request) (ledger.Group, bool) {
	g, _, ok := s.memberGroup(w, r)
	if !ok {
		return ledger.Group{}, false
	}
	// resolved by memberGroup, so this hits the session cache
	if err := sessionFrom(r).Require(r.Context(), g.ID, permission.ManageGroup); err != nil {
		s.writeDomainErr(w, r, err)
		return ledger.Group{}, false
	}
	return g, true
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	g, _, ok := s.memberGroup(w, r)
	if !ok {
		return
	}
	toJSON(w, http.StatusOK, toGroupResponse(g))
}

func (s *Server) updateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, ok := s.managedGroup(w, r)
	if !ok {
		return
	}
	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Description != nil {
		g.Description = *req.Description
	}
	updated, err := s.groups.Update(r.Context(), sessionFrom(r).UserID, g)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toGroupResponse(updated))
}

// deleteGroup handles DELETE /v1/groups/{groupID}. Only the owner may delete.
func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	g, _, ok := s.memberGroup(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)
	if err := s.groups.Delete(r.Context(), sess.UserID, g.ID); err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	sess.Refresh()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) leaveGroup(w http.ResponseWriter, r *http.Request) {
	gid, ok := uuidParam(w, r, "groupID")
	if !ok {
		return
	}
	sess := sessionFrom(r)
	if err := s.groups.Leave(r.Context(), sess.UserID, gid); err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	sess.Refresh()
	w.WriteHeader(http.StatusNoContent)
}

// groupPermissions handles GET /v1/groups/{groupID}/permissions: the caller's effective set.
func (s *Server) groupPermissions(w http.ResponseWriter, r *http.Request) {
	g, perms, ok := s.memberGroup(w, r)
	if !ok {
		return
	}
	toJSON(w, http.StatusOK, map[string]any{
		"groupId":     g.ID,
		"isOwner":     g.OwnerID == sessionFrom(r).UserID,
		"permissions": perms,
	})
}
