package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

func int64Ptr(v int64) *int64 { return &v }

func TestPermissionTable(t *testing.T) {
	var (
		adminActor     = core.Actor{UserID: 1, Role: core.RoleAdministrator}
		managerAll     = core.Actor{UserID: 2, Role: core.RoleBrokerManager, ShowAllData: true}
		managerOwn     = core.Actor{UserID: 3, Role: core.RoleBrokerManager, BrokerID: int64Ptr(9)}
		broker         = core.Actor{UserID: 4, Role: core.RoleBroker, BrokerID: int64Ptr(7)}
		brokerShowsAll = core.Actor{UserID: 5, Role: core.RoleBroker, BrokerID: int64Ptr(7), ShowAllData: true}
	)

	managerPerms := []core.Permission{
		core.PermDeleteClient, core.PermDeleteOffer, core.PermDeleteRenewal, core.PermCancelPolicy,
		core.PermManageBrokers, core.PermValidatePayment, core.PermPayCommission,
	}
	adminOnly := []core.Permission{core.PermManageProducts, core.PermManageInsurers}

	for _, p := range managerPerms {
		assert.True(t, adminActor.Can(p), "admin %s", p)
		assert.True(t, managerOwn.Can(p), "manager %s", p)
		assert.False(t, broker.Can(p), "broker %s", p)
	}
	for _, p := range adminOnly {
		assert.True(t, adminActor.Can(p), "admin %s", p)
		assert.False(t, managerAll.Can(p), "manager %s", p)
		assert.False(t, broker.Can(p), "broker %s", p)
	}

	assert.True(t, adminActor.CanViewAllData())
	assert.True(t, managerAll.CanViewAllData())
	assert.False(t, managerOwn.CanViewAllData())
	assert.False(t, broker.CanViewAllData())
	assert.False(t, brokerShowsAll.CanViewAllData())

	assert.False(t, core.Actor{}.Can(core.PermDeleteClient))
	assert.False(t, core.Actor{Role: "SUPERUSER"}.Can(core.PermManageProducts))
	assert.False(t, adminActor.Can(core.Permission("launch_rockets")))
}

func TestRequire(t *testing.T) {
	assert.NoError(t, core.Require(admin, core.PermManageProducts))

	err := core.Require(brokerActor(4, 7), core.PermCancelPolicy)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "BROKER may not cancel_policy")

	err = core.Require(core.Actor{}, core.PermDeleteOffer)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "anonymous")
}

func TestCanSee(t *testing.T) {
	assert.True(t, admin.CanSee(42))
	assert.True(t, brokerActor(4, 7).CanSee(7))
	assert.False(t, brokerActor(4, 7).CanSee(8))
	assert.False(t, core.Actor{Role: core.RoleBroker}.CanSee(0))
	assert.False(t, core.Actor{Role: core.RoleBrokerManager}.CanSee(7))
	assert.False(t, core.Actor{BrokerID: int64Ptr(7)}.CanSee(7))
}

func TestFilterByScope(t *testing.T) {
	items := []core.Client{
		{ID: 1, BrokerID: 7},
		{ID: 2, BrokerID: 8},
		{ID: 3, BrokerID: 7},
		{ID: 4, BrokerID: 0},
	}
	ids := func(cs []core.Client) []int64 {
		out := make([]int64, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}

	tests := []struct {
		name  string
		actor core.Actor
		want  []int64
	}{
		{"administrator sees everything", admin, []int64{1, 2, 3, 4}},
		{"manager with show-all sees everything", manager, []int64{1, 2, 3, 4}},
		{"manager without show-all sees own book", core.Actor{Role: core.RoleBrokerManager, BrokerID: int64Ptr(8)}, []int64{2}},
		{"broker sees own book in order", brokerActor(4, 7), []int64{1, 3}},
		{"broker without a broker link sees nothing", core.Actor{Role: core.RoleBroker}, []int64{}},
		{"anonymous sees nothing", core.Actor{BrokerID: int64Ptr(7)}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(core.FilterByScope(items, tt.actor)))
		})
	}
}

func TestFilterByScopeNeverLeaksOtherBrokers(t *testing.T) {
	offers := make([]core.Offer, 0, 50)
	for i := int64(0); i < 50; i++ {
		offers = append(offers, core.Offer{ID: i, BrokerID: i % 5})
	}
	for b := int64(0); b < 5; b++ {
		for _, o := range core.FilterByScope(offers, brokerActor(100, b)) {
			assert.Equal(t, b, o.BrokerID)
		}
	}
}

func TestCNP(t *testing.T) {
	tests := []struct {
		cnp  string
		year int
	}{
		{"1850101123456", 1985},
		{"2850101123456", 1985},
		{"2050101123456", 1905},
		{"5050101123456", 2005},
		{"6991231123456", 2099},
		{"7000101123456", 2000},
		{"9850101123456", 2085},
	}
	for _, tt := range tests {
		t.Run(tt.cnp, func(t *testing.T) {
			got, err := core.BirthYearFromCNP(tt.cnp)
			assert.NoError(t, err)
			assert.Equal(t, tt.year, got)
		})
	}

	for _, bad := range []string{"", "185010112345", "18501011234567", "18501011234a6"} {
		assert.False(t, core.ValidCNP(bad), bad)
		_, err := core.BirthYearFromCNP(bad)
		assert.ErrorIs(t, err, core.ErrValidation, bad)
	}

	age, err := core.AgeFromCNP("1950101123456", ratingNow)
	assert.NoError(t, err)
	assert.Equal(t, 30, age)
}
