package service

import (
	"guardbot/model"

	"github.com/sirupsen/logrus"
)

// TrackMember records the sender so tag-all can reach them later.
func (c *Chat) TrackMember() {
	msg := c.update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot || msg.Chat.IsPrivate() || msg.SenderChat != nil {
		return
	}
	if err := c.members.Add(c.ctx, c.chatID, model.Admin{UserID: msg.From.ID, Name: userName(msg.From)}); err != nil {
		logrus.Errorf("track_member chat=%v user=%v err=%v", c.chatID, msg.From.ID, err)
	}
	for _, u := range msg.NewChatMembers {
		if u.IsBot {
			continue
		}
		if err := c.members.Add(c.ctx, c.chatID, model.Admin{UserID: u.ID, Name: userName(&u)}); err != nil {
			logrus.Errorf("track_member chat=%v user=%v err=%v", c.chatID, u.ID, err)
		}
	}
	if u := msg.LeftChatMember; u != nil {
		if err := c.members.Remove(c.ctx, c.chatID, u.ID); err != nil {
			logrus.Errorf("untrack_member chat=%v user=%v err=%v", c.chatID, u.ID, err)
		}
	}
}
