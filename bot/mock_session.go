/* mock_session.go
 * Contains mock implementation of DiscordSession for testing
 * Authors: Zachary Bower
 */

package bot

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// MockDiscordSession implements DiscordSession for testing purposes. It is safe for concurrent use because the
// notifier delivers direct messages from several goroutines.
type MockDiscordSession struct {
	mu sync.Mutex

	// SentMessages stores all messages sent during tests
	SentMessages []MockMessage
	// EditedMessages stores all message edits made during tests
	EditedMessages []MockMessage
	// ErrorToReturn allows tests to simulate send errors
	ErrorToReturn error
	// SendFailures makes the next n sends fail with ErrorToReturn, or a generic error if it is nil
	SendFailures int
	// EditErrorToReturn allows tests to simulate edit errors
	EditErrorToReturn error
	// DMErrors maps user ids to the error UserChannelCreate returns for them
	DMErrors map[string]error
	// Permissions maps user ids to their permission bits
	Permissions map[string]int64

	nextID int
}

// MockMessage represents a message sent to a channel
type MockMessage struct {
	ChannelID string
	MessageID string
	Content   string
}

// ChannelMessageSend implements DiscordSession.ChannelMessageSend
func (m *MockDiscordSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendFailures > 0 {
		m.SendFailures--
		if m.ErrorToReturn != nil {
			return nil, m.ErrorToReturn
		}
		return nil, fmt.Errorf("mock send failure")
	}
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}

	m.nextID++
	msg := MockMessage{
		ChannelID: channelID,
		MessageID: fmt.Sprintf("mock_message_%d", m.nextID),
		Content:   content,
	}
	m.SentMessages = append(m.SentMessages, msg)

	return &discordgo.Message{
		ID:        msg.MessageID,
		ChannelID: channelID,
		Content:   content,
	}, nil
}

// ChannelMessageEdit implements DiscordSession.ChannelMessageEdit
func (m *MockDiscordSession) ChannelMessageEdit(channelID string, messageID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EditErrorToReturn != nil {
		return nil, m.EditErrorToReturn
	}

	m.EditedMessages = append(m.EditedMessages, MockMessage{
		ChannelID: channelID,
		MessageID: messageID,
		Content:   content,
	})
	return &discordgo.Message{
		ID:        messageID,
		ChannelID: channelID,
		Content:   content,
	}, nil
}

// UserChannelCreate implements DiscordSession.UserChannelCreate. The DM channel id is "dm-" followed by the user id.
func (m *MockDiscordSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.DMErrors[recipientID]; ok {
		return nil, err
	}
	return &discordgo.Channel{
		ID:   "dm-" + recipientID,
		Type: discordgo.ChannelTypeDM,
	}, nil
}

// UserChannelPermissions implements DiscordSession.UserChannelPermissions
func (m *MockDiscordSession) UserChannelPermissions(userID string, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Permissions[userID], nil
}

// SetAdmin grants userID the Administrator permission
func (m *MockDiscordSession) SetAdmin(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Permissions == nil {
		m.Permissions = make(map[string]int64)
	}
	m.Permissions[userID] = discordgo.PermissionAdministrator
}

// GetLastMessage returns the last message sent, or empty MockMessage if none
func (m *MockDiscordSession) GetLastMessage() MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentMessages) == 0 {
		return MockMessage{}
	}
	return m.SentMessages[len(m.SentMessages)-1]
}

// MessagesTo returns every message sent to channelID, in order
func (m *MockDiscordSession) MessagesTo(channelID string) []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []MockMessage
	for _, msg := range m.SentMessages {
		if msg.ChannelID == channelID {
			res = append(res, msg)
		}
	}
	return res
}

// ClearMessages clears all stored messages
func (m *MockDiscordSession) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentMessages = nil
	m.EditedMessages = nil
}

// NewMockDiscordSession creates a new MockDiscordSession for testing
func NewMockDiscordSession() *MockDiscordSession {
	return &MockDiscordSession{
		SentMessages: make([]MockMessage, 0),
		DMErrors:     make(map[string]error),
		Permissions:  make(map[string]int64),
	}
}
