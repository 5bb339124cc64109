package dj

// Control messages exchanged with the broadcast backend as JSON text frames.
// Audio travels separately as binary frames of little-endian int16 PCM.

// authRequest is sent immediately after the socket opens.
type authRequest struct {
	Type       string `json:"type"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	MountPoint string `json:"mount_point"`
	ShowID     string `json:"show_id"`
}

// pongReply answers a backend keepalive probe. The backend drops connections
// that do not reply.
type pongReply struct {
	Type string `json:"type"`
}

// disconnectNotice tells the backend a shutdown is deliberate.
type disconnectNotice struct {
	Type string `json:"type"`
}

// controlMessage is the inbound envelope; only the fields relevant to the
// tagged type are populated.
type controlMessage struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`  // auth_failed
	Message string `json:"message"` // error
	Count   int    `json:"count"`   // listener_count
}
