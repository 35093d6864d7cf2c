package socket

// Broadcaster publishes domain events to workspace rooms.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// BroadcastToWorkspace sends an event to every subscriber of the workspace.
func (b *Broadcaster) BroadcastToWorkspace(workspaceID string, msgType MessageType, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if _, ok := payload["workspaceId"]; !ok {
		payload["workspaceId"] = workspaceID
	}
	b.hub.SendToRoom(WorkspaceRoom(workspaceID), msgType, payload, "")
}

// DetachUser stops a removed member from receiving the workspace's events.
func (b *Broadcaster) DetachUser(workspaceID, userID string) {
	b.hub.RemoveUserFromRoom(WorkspaceRoom(workspaceID), userID)
}

// CloseWorkspace drops all subscribers of a deleted workspace.
func (b *Broadcaster) CloseWorkspace(workspaceID string) {
	b.hub.CloseRoom(WorkspaceRoom(workspaceID))
}
