package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/interfaces"
)

const (
	versionPairwise = "v2"
	versionGroup    = "GROUP"
)

type simContext struct {
	ConversationID string            `json:"conversationID"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type simConversation struct {
	topic     string
	createdAt int64
	creator   string
	peer      string
	context   *simContext
}

func (c *simConversation) participants() []string {
	return []string{c.creator, c.peer}
}

func (c *simConversation) other(address string) string {
	if address == c.creator {
		return c.peer
	}
	return c.creator
}

type simGroup struct {
	id          string
	topic       string
	createdAt   int64
	creator     string
	permission  string
	members     []string
	addedBy     map[string]string
	removed     map[string]bool
	name        string
	imageURL    string
	description string
}

func (g *simGroup) isMember(address string) bool {
	for _, m := range g.members {
		if m == address {
			return true
		}
	}
	return false
}

type pendingPush struct {
	push interfaces.PushFunc
	raw  string
}

func deliver(pending []pendingPush) {
	for _, p := range pending {
		p.push(p.raw)
	}
}

// queue collects a push for key if a stream is open. Callers hold s.mu.
func (s *SimulatedEngine) queue(pending []pendingPush, key interfaces.StreamKey, raw string) []pendingPush {
	if stream, ok := s.streams[key]; ok {
		pending = append(pending, pendingPush{push: stream.push, raw: raw})
	}
	return pending
}

func (s *SimulatedEngine) conversationRecord(c *simConversation, forClient string) string {
	rec := map[string]any{
		"clientAddress": forClient,
		"topic":         c.topic,
		"createdAt":     c.createdAt,
		"version":       versionPairwise,
		"peerAddress":   c.other(forClient),
	}
	if c.context != nil {
		rec["context"] = c.context
		rec["conversationID"] = c.context.ConversationID
	}
	data, _ := json.Marshal(rec)
	return string(data)
}

func (s *SimulatedEngine) groupRecord(g *simGroup, forClient string) string {
	members := make([]map[string]any, 0, len(g.members))
	for _, m := range g.members {
		level := "member"
		if m == g.creator {
			level = "super_admin"
		}
		members = append(members, map[string]any{
			"inboxId":         m,
			"addresses":       []string{m},
			"permissionLevel": level,
		})
	}
	data, _ := json.Marshal(map[string]any{
		"clientAddress":  forClient,
		"id":             g.id,
		"topic":          g.topic,
		"createdAt":      g.createdAt,
		"version":        versionGroup,
		"members":        members,
		"creatorInboxId": g.creator,
		"isActive":       !g.removed[forClient] && g.isMember(forClient),
		"addedByInboxId": g.addedBy[forClient],
		"name":           g.name,
		"imageUrlSquare": g.imageURL,
		"description":    g.description,
	})
	return string(data)
}

func (s *SimulatedEngine) recordFor(key, forClient string) (string, bool) {
	switch {
	case strings.HasPrefix(key, "c:"):
		return s.conversationRecord(s.conversations[key[2:]], forClient), false
	default:
		return s.groupRecord(s.groups[key[2:]], forClient), true
	}
}

func appendUnique(list []string, key string) []string {
	for _, existing := range list {
		if existing == key {
			return list
		}
	}
	return append(list, key)
}

// CreateConversation implements IConversationEngine.CreateConversation.
// Creating the same pair and conversation id twice returns the same topic.
func (s *SimulatedEngine) CreateConversation(ctx context.Context, clientAddress, peerAddress, contextJSON string) (string, error) {
	raw, pending, err := s.createConversation(clientAddress, peerAddress, contextJSON)
	deliver(pending)
	return raw, err
}

func (s *SimulatedEngine) createConversation(clientAddress, peerAddress, contextJSON string) (string, []pendingPush, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("CreateConversation", clientAddress); err != nil {
		return "", nil, err
	}
	creator, err := s.client(clientAddress)
	if err != nil {
		return "", nil, err
	}
	if _, ok := s.clients[peerAddress]; !ok {
		return "", nil, fmt.Errorf("%s is not on the network", peerAddress)
	}

	var convCtx simContext
	if contextJSON != "" {
		if err := json.Unmarshal([]byte(contextJSON), &convCtx); err != nil {
			return "", nil, fmt.Errorf("invalid conversation context: %w", err)
		}
	}

	for _, key := range creator.order {
		if !strings.HasPrefix(key, "c:") {
			continue
		}
		existing := s.conversations[key[2:]]
		sameCtx := (existing.context == nil && convCtx.ConversationID == "") ||
			(existing.context != nil && existing.context.ConversationID == convCtx.ConversationID)
		if existing.other(clientAddress) == peerAddress && sameCtx {
			return s.conversationRecord(existing, clientAddress), nil, nil
		}
	}

	conv := &simConversation{
		topic:     "/xmtp/0/m-" + strings.ReplaceAll(uuid.NewString(), "-", "") + "/proto",
		createdAt: s.tick(),
		creator:   clientAddress,
		peer:      peerAddress,
	}
	if convCtx.ConversationID != "" || len(convCtx.Metadata) > 0 {
		conv.context = &convCtx
	}
	s.conversations[conv.topic] = conv

	var pending []pendingPush
	for _, p := range conv.participants() {
		c := s.clients[p]
		c.order = appendUnique(c.order, "c:"+conv.topic)
		raw := s.conversationRecord(conv, p)
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: p, Kind: interfaces.StreamConversations}, raw)
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: p, Kind: interfaces.StreamAll}, raw)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "SimulatedEngine.CreateConversation",
		"client_address": clientAddress,
		"topic":          conv.topic,
	}).Info("Simulated conversation created")

	return s.conversationRecord(conv, clientAddress), pending, nil
}

// CreateGroup implements IConversationEngine.CreateGroup.
func (s *SimulatedEngine) CreateGroup(ctx context.Context, clientAddress string, peerAddresses []string, permissionLevel string) (string, error) {
	raw, pending, err := s.createGroup(clientAddress, peerAddresses, permissionLevel)
	deliver(pending)
	return raw, err
}

func (s *SimulatedEngine) createGroup(clientAddress string, peerAddresses []string, permissionLevel string) (string, []pendingPush, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("CreateGroup", clientAddress); err != nil {
		return "", nil, err
	}
	if _, err := s.client(clientAddress); err != nil {
		return "", nil, err
	}
	if permissionLevel != "everyone_admin" && permissionLevel != "creator_admin" {
		return "", nil, fmt.Errorf("unknown permission level %q", permissionLevel)
	}
	for _, peer := range peerAddresses {
		if _, ok := s.clients[peer]; !ok {
			return "", nil, fmt.Errorf("%s is not on the network", peer)
		}
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	g := &simGroup{
		id:         id,
		topic:      "/xmtp/mls/1/g-" + id + "/proto",
		createdAt:  s.tick(),
		creator:    clientAddress,
		permission: permissionLevel,
		addedBy:    make(map[string]string),
		removed:    make(map[string]bool),
	}
	for _, member := range append([]string{clientAddress}, peerAddresses...) {
		if !g.isMember(member) {
			g.members = append(g.members, member)
			g.addedBy[member] = clientAddress
		}
	}
	s.groups[id] = g

	var pending []pendingPush
	for _, m := range g.members {
		s.clients[m].order = appendUnique(s.clients[m].order, "g:"+id)
		raw := s.groupRecord(g, m)
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: m, Kind: interfaces.StreamGroups}, raw)
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: m, Kind: interfaces.StreamAll}, raw)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "SimulatedEngine.CreateGroup",
		"client_address": clientAddress,
		"group_id":       id,
		"members":        len(g.members),
	}).Info("Simulated group created")

	return s.groupRecord(g, clientAddress), pending, nil
}

func (s *SimulatedEngine) listRecords(op, clientAddress string, wantGroups, wantConversations bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(op, clientAddress); err != nil {
		return nil, err
	}
	c, err := s.client(clientAddress)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(c.order))
	for _, key := range c.order {
		raw, isGroup := s.recordFor(key, clientAddress)
		if (isGroup && wantGroups) || (!isGroup && wantConversations) {
			out = append(out, raw)
		}
	}
	return out, nil
}

// ListConversations implements IConversationEngine.ListConversations.
func (s *SimulatedEngine) ListConversations(ctx context.Context, clientAddress string) ([]string, error) {
	return s.listRecords("ListConversations", clientAddress, false, true)
}

// ListGroups implements IConversationEngine.ListGroups.
func (s *SimulatedEngine) ListGroups(ctx context.Context, clientAddress string) ([]string, error) {
	return s.listRecords("ListGroups", clientAddress, true, false)
}

// ListAll implements IConversationEngine.ListAll in creation order.
func (s *SimulatedEngine) ListAll(ctx context.Context, clientAddress string) ([]string, error) {
	return s.listRecords("ListAll", clientAddress, true, true)
}

// group looks up a group the client belongs to. Callers hold s.mu.
func (s *SimulatedEngine) group(clientAddress, groupID string) (*simGroup, error) {
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s not found", groupID)
	}
	if !g.isMember(clientAddress) && !g.removed[clientAddress] {
		return nil, fmt.Errorf("group %s not found", groupID)
	}
	return g, nil
}

// ListMemberAddresses implements IConversationEngine.ListMemberAddresses.
func (s *SimulatedEngine) ListMemberAddresses(ctx context.Context, clientAddress, groupID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("ListMemberAddresses", clientAddress); err != nil {
		return nil, err
	}
	g, err := s.group(clientAddress, groupID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), g.members...), nil
}

func (s *SimulatedEngine) isAdmin(g *simGroup, address string) bool {
	return g.permission == "everyone_admin" || g.creator == address
}

// AddGroupMembers implements IConversationEngine.AddGroupMembers.
func (s *SimulatedEngine) AddGroupMembers(ctx context.Context, clientAddress, groupID string, addresses []string) error {
	pending, err := s.addGroupMembers(clientAddress, groupID, addresses)
	deliver(pending)
	return err
}

func (s *SimulatedEngine) addGroupMembers(clientAddress, groupID string, addresses []string) ([]pendingPush, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("AddGroupMembers", clientAddress); err != nil {
		return nil, err
	}
	g, err := s.group(clientAddress, groupID)
	if err != nil {
		return nil, err
	}
	if !s.isAdmin(g, clientAddress) {
		return nil, fmt.Errorf("%s is not an admin of group %s", clientAddress, groupID)
	}

	var pending []pendingPush
	for _, address := range addresses {
		member, ok := s.clients[address]
		if !ok {
			return pending, fmt.Errorf("%s is not on the network", address)
		}
		if g.isMember(address) {
			continue
		}
		g.members = append(g.members, address)
		g.addedBy[address] = clientAddress
		delete(g.removed, address)
		member.order = appendUnique(member.order, "g:"+groupID)

		raw := s.groupRecord(g, address)
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: address, Kind: interfaces.StreamGroups}, raw)
		pending = s.queue(pending, interfaces.StreamKey{ClientAddress: address, Kind: interfaces.StreamAll}, raw)
	}
	return pending, nil
}

// RemoveGroupMembers implements IConversationEngine.RemoveGroupMembers.
func (s *SimulatedEngine) RemoveGroupMembers(ctx context.Context, clientAddress, groupID string, addresses []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("RemoveGroupMembers", clientAddress); err != nil {
		return err
	}
	g, err := s.group(clientAddress, groupID)
	if err != nil {
		return err
	}
	if !s.isAdmin(g, clientAddress) {
		return fmt.Errorf("%s is not an admin of group %s", clientAddress, groupID)
	}

	remove := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		remove[a] = true
	}
	kept := g.members[:0]
	for _, m := range g.members {
		if remove[m] {
			g.removed[m] = true
			continue
		}
		kept = append(kept, m)
	}
	g.members = kept
	return nil
}

// IsGroupActive implements IConversationEngine.IsGroupActive.
func (s *SimulatedEngine) IsGroupActive(ctx context.Context, clientAddress, groupID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("IsGroupActive", clientAddress); err != nil {
		return false, err
	}
	g, err := s.group(clientAddress, groupID)
	if err != nil {
		return false, err
	}
	return g.isMember(clientAddress), nil
}

// AddedByAddress implements IConversationEngine.AddedByAddress.
func (s *SimulatedEngine) AddedByAddress(ctx context.Context, clientAddress, groupID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("AddedByAddress", clientAddress); err != nil {
		return "", err
	}
	g, err := s.group(clientAddress, groupID)
	if err != nil {
		return "", err
	}
	return g.addedBy[clientAddress], nil
}

// IsGroupAdmin implements IConversationEngine.IsGroupAdmin.
func (s *SimulatedEngine) IsGroupAdmin(ctx context.Context, clientAddress, groupID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("IsGroupAdmin", clientAddress); err != nil {
		return false, err
	}
	g, err := s.group(clientAddress, groupID)
	if err != nil {
		return false, err
	}
	return s.isAdmin(g, clientAddress), nil
}

// SyncGroups implements IConversationEngine.SyncGroups. The simulation is
// always in sync.
func (s *SimulatedEngine) SyncGroups(ctx context.Context, clientAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("SyncGroups", clientAddress); err != nil {
		return err
	}
	_, err := s.client(clientAddress)
	return err
}

// SyncGroup implements IConversationEngine.SyncGroup.
func (s *SimulatedEngine) SyncGroup(ctx context.Context, clientAddress, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("SyncGroup", clientAddress); err != nil {
		return err
	}
	_, err := s.group(clientAddress, groupID)
	return err
}

// WelcomeFor returns the welcome message that lets address join groupID
// through ProcessWelcomeMessage.
func (s *SimulatedEngine) WelcomeFor(groupID, address string) string {
	return "welcome:" + groupID + ":" + address
}

// ProcessWelcomeMessage implements IConversationEngine.ProcessWelcomeMessage.
func (s *SimulatedEngine) ProcessWelcomeMessage(ctx context.Context, clientAddress, encryptedMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("ProcessWelcomeMessage", clientAddress); err != nil {
		return "", err
	}
	c, err := s.client(clientAddress)
	if err != nil {
		return "", err
	}
	parts := strings.Split(encryptedMessage, ":")
	if len(parts) != 3 || parts[0] != "welcome" || parts[2] != clientAddress {
		return "", fmt.Errorf("cannot decrypt welcome message")
	}
	g, ok := s.groups[parts[1]]
	if !ok {
		return "", fmt.Errorf("group %s not found", parts[1])
	}
	if !g.isMember(clientAddress) {
		g.members = append(g.members, clientAddress)
		g.addedBy[clientAddress] = g.creator
		delete(g.removed, clientAddress)
	}
	c.order = appendUnique(c.order, "g:"+g.id)
	return s.groupRecord(g, clientAddress), nil
}

// ExportConversationTopicData implements IConversationEngine.ExportConversationTopicData.
func (s *SimulatedEngine) ExportConversationTopicData(ctx context.Context, clientAddress, topic string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("ExportConversationTopicData", clientAddress); err != nil {
		return "", err
	}
	conv, ok := s.conversations[topic]
	if !ok || (conv.creator != clientAddress && conv.peer != clientAddress) {
		return "", fmt.Errorf("conversation %s not found", topic)
	}
	return "topic-data:" + topic, nil
}

// ImportConversationTopicData implements IConversationEngine.ImportConversationTopicData.
func (s *SimulatedEngine) ImportConversationTopicData(ctx context.Context, clientAddress, topicData string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("ImportConversationTopicData", clientAddress); err != nil {
		return "", err
	}
	c, err := s.client(clientAddress)
	if err != nil {
		return "", err
	}
	topic := strings.TrimPrefix(topicData, "topic-data:")
	conv, ok := s.conversations[topic]
	if !ok || (conv.creator != clientAddress && conv.peer != clientAddress) {
		return "", fmt.Errorf("invalid topic data")
	}
	c.order = appendUnique(c.order, "c:"+topic)
	return s.conversationRecord(conv, clientAddress), nil
}
