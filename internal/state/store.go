package state

// Client is a connected identity known to the session
type Client struct {
	Nick  string
	Modes uint64
}

// SetFlag sets or clears a user mode flag
func (c *Client) SetFlag(flag uint64, adding bool) {
	if adding {
		c.Modes |= flag
	} else {
		c.Modes &^= flag
	}
}

// FoldFunc maps a channel name or nick to its case-insensitive key
type FoldFunc func(string) string

// Store is the directory of channels and clients of one session
type Store struct {
	fold     FoldFunc
	channels map[string]*Channel
	clients  map[string]*Client
}

// NewStore creates an empty store keyed with fold
func NewStore(fold FoldFunc) *Store {
	return &Store{
		fold:     fold,
		channels: make(map[string]*Channel),
		clients:  make(map[string]*Client),
	}
}

// Fold returns the case-insensitive key for a name
func (s *Store) Fold(name string) string {
	return s.fold(name)
}

// Channel looks up a channel by name
func (s *Store) Channel(name string) (*Channel, bool) {
	c, ok := s.channels[s.fold(name)]
	return c, ok
}

// EnsureChannel returns the channel, creating it when missing. created is
// true when a new channel was made.
func (s *Store) EnsureChannel(name string) (ch *Channel, created bool) {
	key := s.fold(name)
	if c, ok := s.channels[key]; ok {
		return c, false
	}
	c := NewChannel(name)
	s.channels[key] = c
	return c, true
}

// RemoveChannel drops a channel and all of its state
func (s *Store) RemoveChannel(name string) {
	delete(s.channels, s.fold(name))
}

// Channels returns every known channel
func (s *Store) Channels() []*Channel {
	channels := make([]*Channel, 0, len(s.channels))
	for _, c := range s.channels {
		channels = append(channels, c)
	}
	return channels
}

// Client looks up a client by nick
func (s *Store) Client(nick string) (*Client, bool) {
	c, ok := s.clients[s.fold(nick)]
	return c, ok
}

// EnsureClient returns the client, creating it on first reference
func (s *Store) EnsureClient(nick string) *Client {
	key := s.fold(nick)
	if c, ok := s.clients[key]; ok {
		return c
	}
	c := &Client{Nick: nick}
	s.clients[key] = c
	return c
}

// RemoveClient drops a client and its membership in every channel
func (s *Store) RemoveClient(nick string) {
	key := s.fold(nick)
	delete(s.clients, key)
	for _, c := range s.channels {
		c.RemoveMember(key)
	}
}

// RenameClient moves a client and its memberships to a new nick
func (s *Store) RenameClient(oldNick, newNick string) {
	oldKey, newKey := s.fold(oldNick), s.fold(newNick)

	if c, ok := s.clients[oldKey]; ok {
		delete(s.clients, oldKey)
		c.Nick = newNick
		s.clients[newKey] = c
	}

	for _, ch := range s.channels {
		if m, ok := ch.Members[oldKey]; ok {
			delete(ch.Members, oldKey)
			m.Nick = newNick
			ch.Members[newKey] = m
		}
	}
}

// Clients returns every known client
func (s *Store) Clients() []*Client {
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}
