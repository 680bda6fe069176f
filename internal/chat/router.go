package chat

// Router decides which live connections receive a persisted message. It
// only ever reads the registry.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Route computes the deterministic fan-out set for msg:
//
//   - visitor message: every live admin connection;
//   - admin message addressed to a user: every live connection of that
//     user, whatever tab or device;
//   - admin message with no target: the shared anonymous thread, i.e.
//     every live non-admin connection.
//
// The originating connection is always included so its UI sees the
// persisted id and createdAt, at most once even when it already matched
// a rule above.
func (rt *Router) Route(msg Message, origin *Conn) []*Conn {
	var targets []*Conn
	switch {
	case !msg.IsAdmin:
		targets = rt.registry.Admins()
	case msg.SenderID != nil:
		targets = rt.registry.ForUser(*msg.SenderID)
	default:
		targets = rt.registry.NonAdmins()
	}
	if origin == nil {
		return targets
	}
	for _, c := range targets {
		if c == origin {
			return targets
		}
	}
	return append(targets, origin)
}
