package handlers

import (
	"net/http"
)

type Middleware func(http.Handler) http.Handler

// Router groups the handlers behind the /api/v1 routes.
type Router struct {
	Auth          *AuthHandler
	Profiles      *ProfileHandler
	Communities   *CommunityHandler
	Channels      *ChannelHandler
	Messages      *MessageHandler
	Conversations *ConversationHandler
	Activity      *ActivityHandler
	Admin         *AdminHandler
}

// Register adds every API route to mux. auth wraps protected routes; admin is
// applied on top of auth for operator routes.
func (rt *Router) Register(mux *http.ServeMux, auth, admin Middleware) {
	protect := func(fn http.HandlerFunc) http.Handler {
		return auth(fn)
	}

	// Public
	mux.HandleFunc("POST /api/v1/auth/register", rt.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", rt.Auth.Login)

	// Profile
	mux.Handle("GET /api/v1/me/profile", protect(rt.Profiles.GetMine))
	mux.Handle("PATCH /api/v1/me/profile", protect(rt.Profiles.Update))
	mux.Handle("POST /api/v1/me/avatar", protect(rt.Profiles.UploadAvatar))
	mux.Handle("GET /api/v1/me/mute", protect(rt.Profiles.GetMuteSettings))
	mux.Handle("PUT /api/v1/me/mute", protect(rt.Profiles.UpdateMuteSettings))
	mux.Handle("GET /api/v1/me/restricted-words", protect(rt.Profiles.ListRestrictedWords))
	mux.Handle("PUT /api/v1/me/restricted-words", protect(rt.Profiles.SetRestrictedWords))
	mux.Handle("GET /api/v1/users/{uid}/profile", protect(rt.Profiles.Get))

	// Communities
	mux.Handle("POST /api/v1/communities", protect(rt.Communities.Create))
	mux.Handle("GET /api/v1/communities", protect(rt.Communities.List))
	mux.Handle("GET /api/v1/communities/{id}", protect(rt.Communities.Get))
	mux.Handle("PATCH /api/v1/communities/{id}", protect(rt.Communities.Update))
	mux.Handle("DELETE /api/v1/communities/{id}", protect(rt.Communities.Delete))
	mux.Handle("POST /api/v1/communities/{id}/logo", protect(rt.Communities.UploadLogo))
	mux.Handle("POST /api/v1/communities/{id}/join", protect(rt.Communities.Join))
	mux.Handle("POST /api/v1/communities/{id}/leave", protect(rt.Communities.Leave))

	// Community members
	mux.Handle("GET /api/v1/communities/{id}/members", protect(rt.Communities.ListMembers))
	mux.Handle("POST /api/v1/communities/{id}/members", protect(rt.Communities.AddMember))
	mux.Handle("POST /api/v1/communities/{id}/members/{uid}/promote", protect(rt.Communities.Promote))
	mux.Handle("POST /api/v1/communities/{id}/members/{uid}/demote", protect(rt.Communities.Demote))
	mux.Handle("POST /api/v1/communities/{id}/members/{uid}/kick", protect(rt.Communities.Kick))
	mux.Handle("POST /api/v1/communities/{id}/members/{uid}/ban", protect(rt.Communities.Ban))
	mux.Handle("POST /api/v1/communities/{id}/members/{uid}/unban", protect(rt.Communities.Unban))

	// Channels
	mux.Handle("GET /api/v1/communities/{id}/channels", protect(rt.Channels.List))
	mux.Handle("POST /api/v1/communities/{id}/channels", protect(rt.Channels.Create))
	mux.Handle("GET /api/v1/communities/{id}/channels/{cid}", protect(rt.Channels.Get))
	mux.Handle("DELETE /api/v1/communities/{id}/channels/{cid}", protect(rt.Channels.Delete))

	// Conversations
	mux.Handle("GET /api/v1/conversations", protect(rt.Conversations.List))
	mux.Handle("POST /api/v1/conversations", protect(rt.Conversations.Open))
	mux.Handle("GET /api/v1/conversations/{conv}", protect(rt.Conversations.Get))
	mux.Handle("POST /api/v1/conversations/{conv}/read", protect(rt.Conversations.MarkAsRead))

	// Messages, the same set for both kinds of thread
	for _, prefix := range []string{
		"/api/v1/communities/{id}/channels/{cid}/messages",
		"/api/v1/conversations/{conv}/messages",
	} {
		mux.Handle("GET "+prefix, protect(rt.Messages.List))
		mux.Handle("POST "+prefix, protect(rt.Messages.Send))
		mux.Handle("POST "+prefix+"/attachments", protect(rt.Messages.SendAttachment))
		mux.Handle("POST "+prefix+"/{mid}/reactions", protect(rt.Messages.ToggleReaction))
		mux.Handle("POST "+prefix+"/{mid}/pin", protect(rt.Messages.TogglePin))
		mux.Handle("POST "+prefix+"/{mid}/forward", protect(rt.Messages.Forward))
		mux.Handle("DELETE "+prefix+"/{mid}", protect(rt.Messages.Delete))
	}

	// Activity
	mux.Handle("GET /api/v1/activity", protect(rt.Activity.List))
	mux.Handle("POST /api/v1/activity/read", protect(rt.Activity.MarkRead))

	// Admin
	mux.Handle("POST /api/v1/admin/retention/run", auth(admin(http.HandlerFunc(rt.Admin.RunRetention))))
	mux.Handle("GET /api/v1/admin/retention/runs", auth(admin(http.HandlerFunc(rt.Admin.ListRetentionRuns))))
}
