package model

import (
	"testing"

	"github.com/rushteam/shoprec/core"
)

func TestBuildUserItemMatrix_Weights(t *testing.T) {
	tests := []struct {
		name   string
		events []core.Interaction
		user   string
		item   string
		want   float64
	}{
		{
			name:   "view weight 1",
			events: []core.Interaction{{UserID: "u1", ProductID: "p1", Type: core.InteractionView}},
			user:   "u1", item: "p1", want: 1,
		},
		{
			name:   "wishlist weight 2",
			events: []core.Interaction{{UserID: "u1", ProductID: "p1", Type: core.InteractionWishlist}},
			user:   "u1", item: "p1", want: 2,
		},
		{
			name:   "purchase weight 3",
			events: []core.Interaction{{UserID: "u1", ProductID: "p1", Type: core.InteractionPurchase}},
			user:   "u1", item: "p1", want: 3,
		},
		{
			name:   "rating uses raw value",
			events: []core.Interaction{{UserID: "u1", ProductID: "p1", Type: core.InteractionRating, Rating: 4}},
			user:   "u1", item: "p1", want: 4,
		},
		{
			// 重复行为累加，不封顶
			name: "repeated interactions accumulate",
			events: []core.Interaction{
				{UserID: "u1", ProductID: "p1", Type: core.InteractionView},
				{UserID: "u1", ProductID: "p1", Type: core.InteractionView},
				{UserID: "u1", ProductID: "p1", Type: core.InteractionPurchase},
			},
			user: "u1", item: "p1", want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildUserItemMatrix(tt.events)
			row := m.Row(tt.user)
			if row == nil {
				t.Fatal("row missing")
			}
			if got := row[tt.item]; got != tt.want {
				t.Errorf("weight = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserItemMatrix_RowAndHasInteracted(t *testing.T) {
	m := BuildUserItemMatrix([]core.Interaction{
		{UserID: "u1", ProductID: "p1", Type: core.InteractionPurchase},
		{UserID: "u2", ProductID: "p1", Type: core.InteractionPurchase},
		{UserID: "u2", ProductID: "p2", Type: core.InteractionView},
	})

	if m.NumUsers() != 2 {
		t.Errorf("NumUsers = %d, want 2", m.NumUsers())
	}
	if m.Row("ghost") != nil {
		t.Error("Row(ghost) should be nil")
	}
	if !m.HasInteracted("u2", "p2") || m.HasInteracted("u1", "p2") {
		t.Error("HasInteracted wrong")
	}

	users := m.Users()
	if len(users) != 2 || users[0] != "u1" || users[1] != "u2" {
		t.Errorf("Users() = %v, want sorted [u1 u2]", users)
	}
}

func TestUserItemMatrix_Sparsity(t *testing.T) {
	m := BuildUserItemMatrix([]core.Interaction{
		{UserID: "u1", ProductID: "p1", Type: core.InteractionView},
		{UserID: "u2", ProductID: "p1", Type: core.InteractionView},
		{UserID: "u2", ProductID: "p2", Type: core.InteractionView},
	})
	// 2 用户 × 4 商品 = 8 格，3 个非零元 → 稀疏度 5/8
	if got := m.Sparsity(4); got != 0.625 {
		t.Errorf("Sparsity = %v, want 0.625", got)
	}
}
