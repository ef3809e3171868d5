package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_capabilities(t *testing.T) {
	tests := []struct {
		role    Role
		create  bool
		approve bool
		publish bool
		news    bool
		manage  bool
		gsNews  bool
	}{
		{role: RoleFounder, create: true, approve: true, publish: true, news: true, manage: true, gsNews: true},
		{role: RoleAdmin, create: true, approve: true, publish: true, manage: true},
		{role: RoleGeneralSecretary, create: true, gsNews: true},
		{role: RoleDeputy, create: true},
		{role: RoleParticipant},
		{role: Role("teacher")},
	}
	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			assert.Equal(t, tc.create, tc.role.CanCreateConference(), "CanCreateConference")
			assert.Equal(t, tc.approve, tc.role.CanApproveConference(), "CanApproveConference")
			assert.Equal(t, tc.publish, tc.role.CanPublishConference(), "CanPublishConference")
			assert.Equal(t, tc.news, tc.role.CanCreateNews(), "CanCreateNews")
			assert.Equal(t, tc.manage, tc.role.CanManageUsers(), "CanManageUsers")
			assert.Equal(t, tc.gsNews, tc.role.CanViewNewsManagement(), "CanViewNewsManagement")
		})
	}
	assert.True(t, RoleFounder.PublishesOnCreate())
	assert.False(t, RoleAdmin.PublishesOnCreate())
}

func TestRole_CanGrant(t *testing.T) {
	assert.True(t, RoleFounder.CanGrant(RoleAdmin))
	assert.False(t, RoleFounder.CanGrant(RoleFounder))
	assert.True(t, RoleAdmin.CanGrant(RoleAdmin))
	assert.True(t, RoleAdmin.CanGrant(RoleDeputy))
	assert.False(t, RoleAdmin.CanGrant(RoleFounder))
	assert.False(t, RoleGeneralSecretary.CanGrant(RoleParticipant))
	assert.False(t, RoleAdmin.CanGrant(Role("root")))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		pwd     string
		attrs   []string
		wantErr string
	}{
		{pwd: "Xk9mq2Lzp", attrs: []string{"Ali Nurlan", "ali@test.kz"}},
		{pwd: "Xk9mq2", wantErr: pwdMinLenText},
		{pwd: "Xk9m q2Lzp", wantErr: pwdNoSpaceText},
		{pwd: "abcdefghij", wantErr: pwdComplexityText},
		{pwd: "1234567890", wantErr: pwdComplexityText},
		{pwd: "aigerim2024", attrs: []string{"Aigerim2024"}, wantErr: pwdAttrSimText},
	}
	for _, tc := range tests {
		t.Run(tc.pwd, func(t *testing.T) {
			err := ValidatePassword(tc.pwd, tc.attrs...)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}

func TestRegions(t *testing.T) {
	regs := Regions()
	assert.Len(t, regs, 18)
	assert.Equal(t, 1, regs[0].ID)
	assert.Equal(t, 32, regs[len(regs)-1].ID)
	assert.True(t, IsKnownRegion(24))
	assert.False(t, IsKnownRegion(4))
}
