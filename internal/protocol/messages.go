package protocol

// SubscribeMsg is the first message a viewer sends on the websocket.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// WorldParams describes the world a viewer has attached to.
type WorldParams struct {
	Name    string        `json:"name"`
	Seed    int64         `json:"seed"`
	Tick    uint64        `json:"tick"`
	Bounds  *BoundsParams `json:"bounds,omitempty"`
	Robots  int           `json:"robots"`
	Statics int           `json:"statics"`
}

// BoundsParams is the axis-aligned world box, present only when bounded.
type BoundsParams struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// WelcomeMsg answers a valid subscribe. A full scene sync (one add per live
// entity) follows immediately on the same connection.
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Session         string      `json:"session"`
	World           WorldParams `json:"world"`
}

// AddMsg announces a new scene object.
type AddMsg struct {
	Type      string     `json:"type"`
	ID        uint64     `json:"id"`
	Position  [3]float64 `json:"position"`
	Color     [3]float64 `json:"color"`
	ModelType string     `json:"model_type"`
	Scale     [3]float64 `json:"scale"`
}

// UpdateMsg carries the changed state of an existing scene object.
type UpdateMsg struct {
	Type     string      `json:"type"`
	ID       uint64      `json:"id"`
	Position [3]float64  `json:"position"`
	Color    [3]float64  `json:"color"`
	Rotation *[3]float64 `json:"rotation,omitempty"`
	Scale    *[3]float64 `json:"scale,omitempty"`
}

// RemoveMsg retires a scene object.
type RemoveMsg struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
}

// TickMsg marks the end of one simulation step.
type TickMsg struct {
	Type    string `json:"type"`
	Tick    uint64 `json:"tick"`
	Robots  int    `json:"robots"`
	Statics int    `json:"statics"`
}

// ErrorMsg reports a protocol-level failure before the connection closes.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
