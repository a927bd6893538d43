package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestIsValidTransition(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusReady, true},
		{OrderStatusReady, OrderStatusDelivered, true},
		{OrderStatusReady, OrderStatusCancelled, true},

		// Carts only leave cart status through checkout.
		{OrderStatusCart, OrderStatusPending, false},
		{OrderStatusCart, OrderStatusConfirmed, false},

		// No skipping steps, no going backwards, no leaving terminal states.
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusConfirmed, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},

		{OrderStatus("bogus"), OrderStatusPending, false},
	}

	for _, c := range cases {
		if got := IsValidTransition(c.from, c.to); got != c.allowed {
			t.Errorf("IsValidTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestUserIsStaff(t *testing.T) {
	cases := map[string]bool{
		RoleEmployee: true,
		RoleManager:  true,
		RoleAdmin:    true,
		RoleCustomer: false,
		RoleCourier:  false,
	}
	for role, want := range cases {
		u := User{Role: role}
		if u.IsStaff() != want {
			t.Errorf("IsStaff() for role %s = %v, want %v", role, u.IsStaff(), want)
		}
	}
}

func TestUserBeforeCreateGeneratesReferralCode(t *testing.T) {
	u := User{ID: uuid.New()}
	if err := u.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate failed: %v", err)
	}
	if !strings.HasPrefix(u.ReferralCode, "REF-") {
		t.Errorf("Expected REF- prefix, got %q", u.ReferralCode)
	}
	if len(u.ReferralCode) != len("REF-")+8 {
		t.Errorf("Expected 8-character suffix, got %q", u.ReferralCode)
	}

	// An explicit code is preserved.
	custom := User{ID: uuid.New(), ReferralCode: "REF-KEEPME"}
	custom.BeforeCreate(nil)
	if custom.ReferralCode != "REF-KEEPME" {
		t.Errorf("Expected explicit code to survive, got %q", custom.ReferralCode)
	}
}

func TestOrderBeforeCreateGeneratesOrderNumber(t *testing.T) {
	o := Order{ID: uuid.New()}
	if err := o.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate failed: %v", err)
	}
	if !strings.HasPrefix(o.OrderNumber, "CMD") {
		t.Errorf("Expected CMD prefix, got %q", o.OrderNumber)
	}

	other := Order{ID: uuid.New()}
	other.BeforeCreate(nil)
	if o.OrderNumber == other.OrderNumber {
		t.Error("Expected distinct order numbers for distinct orders")
	}
}
