package handler

import (
	"net/http"

	"resc/internal/app/protocol"
	"resc/internal/pkg/auth/jwt"
	"resc/internal/pkg/errs"
	"resc/internal/pkg/logx"
	"resc/internal/pkg/req"
	"resc/internal/pkg/resp"
)

// OperatorAuthor is the author shown on operator announcements.
const OperatorAuthor = "#operator"

// AnnounceInput is the body of POST /api/announce.
type AnnounceInput struct {
	Body string `json:"body"`
}

// HandleStats returns the counters of whichever service this process runs.
func HandleStats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case deps.Chat != nil:
			resp.OK(w, r, deps.Chat.Stats())
		case deps.Tracker != nil:
			resp.OK(w, r, deps.Tracker.Stats())
		default:
			resp.Fail(w, r, errs.NewError(errs.ErrNotAvailable))
		}
	}
}

// HandleListUsers lists the users online on a chat server.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Chat == nil {
			resp.Fail(w, r, errs.NewError(errs.ErrNotAvailable))
			return
		}

		resp.OK(w, r, map[string]any{
			"users": deps.Chat.Directory().List(),
		})
	}
}

// HandleListServers lists the chat servers registered with the tracker, in rotation order.
func HandleListServers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Tracker == nil {
			resp.Fail(w, r, errs.NewError(errs.ErrNotAvailable))
			return
		}

		resp.OK(w, r, map[string]any{
			"servers": deps.Tracker.Servers(),
		})
	}
}

// HandleAnnounce broadcasts an operator message. On a chat server it reaches every local
// user (and, through the uplink, the rest of the network); on the tracker it is relayed to
// every registered server.
func HandleAnnounce(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input AnnounceInput

		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.Fail(w, r, customErr)
			return
		}

		if input.Body == "" {
			resp.Fail(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		msg := protocol.Message{Kind: protocol.Broadcast, From: OperatorAuthor, Body: input.Body}
		if err := msg.Validate(protocol.FromServer); err != nil {
			resp.FailErr(w, r, errs.Wrap(errs.ErrInvalidParams, err))
			return
		}

		var deliveries int
		switch {
		case deps.Chat != nil:
			deliveries = deps.Chat.Registry().Broadcast(msg)
		case deps.Tracker != nil:
			deliveries = deps.Tracker.RelayBroadcast("", msg)
		default:
			resp.Fail(w, r, errs.NewError(errs.ErrNotAvailable))
			return
		}

		operator := ""
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			operator = payload.Subject
		}
		logx.Info("Operator announcement sent.", "operator", operator, "deliveries", deliveries)

		resp.OK(w, r, map[string]int{"deliveries": deliveries})
	}
}
