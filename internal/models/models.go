package models

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Tenant{},
		&TenantMembership{},
		&Session{},
		&Channel{},
		&ChannelMember{},
		&Message{},
		&ReadState{},
	}
}
