package database

import (
	"fmt"

	"github.com/yukikurage/collab-chat-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsureIndexes creates the indexes that the cursor and listing queries rely
// on when a table was created by an older schema that lacked them.
func EnsureIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		model interface{}
		name  string
	}{
		// channel list ordering
		{&models.Channel{}, "idx_channels_tenant_name"},
		// message cursors: list, poll
		{&models.Message{}, "idx_messages_channel_cursor"},
		{&models.Message{}, "TenantID"},
		{&models.Message{}, "ParentMessageID"},
		// membership lookups
		{&models.TenantMembership{}, "TenantID"},
		{&models.ChannelMember{}, "UserID"},
		{&models.ReadState{}, "ChannelID"},
		// session expiry sweeps and revocation
		{&models.Session{}, "UserID"},
		{&models.Session{}, "ExpiresAt"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}
		if err := migrator.CreateIndex(idx.model, idx.name); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		log.Info("Created index", zap.String("index", idx.name))
	}

	return nil
}
