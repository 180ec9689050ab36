package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// MockNotionService is a NotionService for tests.
type MockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePageFunc   func(ctx context.Context, pageID string) error
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	return &notionapi.Page{ID: "new-page"}, nil
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.QueryDatabaseFunc != nil {
		return m.QueryDatabaseFunc(ctx, databaseID, req)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (m *MockNotionService) ArchivePage(ctx context.Context, pageID string) error {
	if m.ArchivePageFunc != nil {
		return m.ArchivePageFunc(ctx, pageID)
	}
	return nil
}

func barcodePage(id, barcode string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			PropBarcode: &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: barcode}},
			},
		},
	}
}

func coupon(barcode string) domain.CouponRecord {
	return domain.CouponRecord{
		OrderID:       1,
		BarcodeNumber: barcode,
		Amount:        decimal.NewFromInt(20),
		ValidDate:     "01/01/2026",
	}
}

func TestNotionNotifier_Sync(t *testing.T) {
	var cursors []notionapi.Cursor
	var created []string
	var archived []string

	svc := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			cursors = append(cursors, req.StartCursor)
			if req.StartCursor == "" {
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{barcodePage("p1", "111")},
					HasMore:    true,
					NextCursor: "next",
				}, nil
			}
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{barcodePage("p2", "222")},
			}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			title := properties[PropBarcode].(notionapi.TitleProperty)
			created = append(created, title.Title[0].Text.Content)
			return &notionapi.Page{ID: "new"}, nil
		},
		ArchivePageFunc: func(ctx context.Context, pageID string) error {
			archived = append(archived, pageID)
			return nil
		},
	}

	n := NewNotionNotifier(svc, "db", "ILS")
	msg := Message{Coupons: []domain.CouponRecord{coupon("111"), coupon("333")}}

	if err := n.Notify(context.Background(), msg); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(cursors) != 2 || cursors[1] != "next" {
		t.Errorf("cursors = %v, want two pages of results", cursors)
	}
	if len(created) != 1 || created[0] != "333" {
		t.Errorf("created = %v, want [333]", created)
	}
	if len(archived) != 1 || archived[0] != "p2" {
		t.Errorf("archived = %v, want [p2]", archived)
	}
}

func TestNotionNotifier_Errors(t *testing.T) {
	t.Run("query failure", func(t *testing.T) {
		svc := &MockNotionService{
			QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
				return nil, errors.New("rate limited")
			},
		}
		if err := NewNotionNotifier(svc, "db", "").Notify(context.Background(), Message{}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("create failure", func(t *testing.T) {
		svc := &MockNotionService{
			CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
				return nil, errors.New("validation_error")
			},
		}
		msg := Message{Coupons: []domain.CouponRecord{coupon("1"), coupon("2")}}
		if err := NewNotionNotifier(svc, "db", "").Notify(context.Background(), msg); err == nil {
			t.Error("expected error")
		}
	})
}
