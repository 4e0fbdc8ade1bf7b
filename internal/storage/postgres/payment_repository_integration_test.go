package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

func TestPaymentRepository_SaveAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	truncateAllTables(t, store)

	branch := seedBranchForIntegrationTest(t, store, uuid.NewString())
	orders := NewOrderRepository(store)
	payments := NewPaymentRepository(store)
	ctx := context.Background()

	order := newTestOrder(branch.ID)
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	success, err := payments.Save(ctx, domain.Payment{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodUPI,
		Status:      domain.PaymentStatusSuccess,
		AmountMinor: 25600,
		RetryCount:  1,
	})
	if err != nil {
		t.Fatalf("save success payment: %v", err)
	}
	if success.ID == "" {
		t.Fatal("expected repository to assign payment id")
	}
	if success.CreatedAt.IsZero() {
		t.Fatal("expected repository to assign created_at")
	}

	if _, err := payments.Save(ctx, domain.Payment{
		OrderID:       order.ID,
		Method:        domain.PaymentMethodCash,
		Status:        domain.PaymentStatusRefunded,
		AmountMinor:   0,
		RefundedMinor: 5000,
	}); err != nil {
		t.Fatalf("save refund payment: %v", err)
	}

	listed, err := payments.ListByOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(listed))
	}
	if listed[0].Status != domain.PaymentStatusSuccess || listed[1].Status != domain.PaymentStatusRefunded {
		t.Fatalf("expected chronological order, got %s then %s", listed[0].Status, listed[1].Status)
	}
	if listed[1].RefundedMinor != 5000 {
		t.Fatalf("expected refunded 5000, got %d", listed[1].RefundedMinor)
	}
}

func TestPaymentRepository_ExistsByOrderAndStatus(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	truncateAllTables(t, store)

	branch := seedBranchForIntegrationTest(t, store, uuid.NewString())
	orders := NewOrderRepository(store)
	payments := NewPaymentRepository(store)
	ctx := context.Background()

	order := newTestOrder(branch.ID)
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	exists, err := payments.ExistsByOrderAndStatus(ctx, order.ID, domain.PaymentStatusSuccess)
	if err != nil {
		t.Fatalf("exists check: %v", err)
	}
	if exists {
		t.Fatal("expected no success payments yet")
	}

	if _, err := payments.Save(ctx, domain.Payment{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodCreditCard,
		Status:      domain.PaymentStatusFailed,
		AmountMinor: 25600,
		RetryCount:  3,
	}); err != nil {
		t.Fatalf("save failed payment: %v", err)
	}

	exists, err = payments.ExistsByOrderAndStatus(ctx, order.ID, domain.PaymentStatusSuccess)
	if err != nil {
		t.Fatalf("exists check after failure: %v", err)
	}
	if exists {
		t.Fatal("FAILED record must not count as SUCCESS")
	}

	if _, err := payments.Save(ctx, domain.Payment{
		OrderID:     order.ID,
		Method:      domain.PaymentMethodCreditCard,
		Status:      domain.PaymentStatusSuccess,
		AmountMinor: 25600,
		RetryCount:  1,
	}); err != nil {
		t.Fatalf("save success payment: %v", err)
	}

	exists, err = payments.ExistsByOrderAndStatus(ctx, order.ID, domain.PaymentStatusSuccess)
	if err != nil {
		t.Fatalf("exists check after success: %v", err)
	}
	if !exists {
		t.Fatal("expected success payment to be visible")
	}
}
