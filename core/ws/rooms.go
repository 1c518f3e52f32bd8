package ws

// Room membership lives in two places that must stay consistent: the hub's
// room index and each connection's room set. Every mutation below takes the
// hub lock first and the connection lock second.

func (h *Hub) join(c *Conn, room string) {
	if room == "" {
		return
	}

	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{}, 4)
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	h.mu.Unlock()

	c.mu.Lock()
	if c.rooms == nil {
		c.rooms = make(map[string]struct{}, 2)
	}
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
}

func (h *Hub) leave(c *Conn, room string) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

// removeConn unregisters the connection and removes it from every room it
// belongs to. Empty rooms are deleted.
func (h *Hub) removeConn(c *Conn) {
	c.mu.Lock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	clear(c.rooms)
	c.mu.Unlock()

	h.mu.Lock()
	delete(h.conns, c.id)
	for _, room := range rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()
}

// members snapshots a room's membership so broadcasts never hold the hub
// lock while writing to sockets.
func (h *Hub) members(room string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set, ok := h.rooms[room]
	if !ok {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Broadcast writes data as a binary frame to every member of room except
// exclude (which may be nil). Per-connection write failures are swallowed so
// one dead socket cannot break the fan-out.
func (h *Hub) Broadcast(room string, data []byte, exclude *Conn) {
	for _, c := range h.members(room) {
		if c == exclude {
			continue
		}
		if err := c.SendBinary(data); err != nil {
			h.logger.Debug("broadcast write failed", "room", room, "conn", c.id, "error", err)
		}
	}
}

// BroadcastText writes msg as a text frame to every member of room except
// exclude.
func (h *Hub) BroadcastText(room, msg string, exclude *Conn) {
	for _, c := range h.members(room) {
		if c == exclude {
			continue
		}
		if err := c.SendText(msg); err != nil {
			h.logger.Debug("broadcast write failed", "room", room, "conn", c.id, "error", err)
		}
	}
}

// RoomSize reports the number of members in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Rooms lists the rooms that currently have members.
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms))
	for room := range h.rooms {
		out = append(out, room)
	}
	return out
}
