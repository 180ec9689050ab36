package notify

import (
	"context"
	"fmt"

	"github.com/dvloznov/tenbis-barcodes/internal/logger"
	"github.com/jomei/notionapi"
)

// NotionService is the subset of the Notion API the notifier needs.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePage(ctx context.Context, pageID string) error
}

// NotionClient implements NotionService with the Notion SDK.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a NotionClient for the integration token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{client: notionapi.NewClient(notionapi.Token(token))}
}

// CreatePage creates a page in databaseID.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}

	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

// QueryDatabase runs one page of a database query.
func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, fmt.Errorf("QueryDatabase: %w", err)
	}
	return resp, nil
}

// ArchivePage moves a page to the trash.
func (n *NotionClient) ArchivePage(ctx context.Context, pageID string) error {
	_, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Archived: true})
	if err != nil {
		return fmt.Errorf("ArchivePage: %w", err)
	}
	return nil
}

// NotionNotifier keeps a Notion database in step with the unused coupons:
// one page per barcode, created once, archived when the coupon is gone.
type NotionNotifier struct {
	service    NotionService
	databaseID string
	currency   string
}

// NewNotionNotifier creates a notifier writing to databaseID.
func NewNotionNotifier(service NotionService, databaseID, currency string) *NotionNotifier {
	return &NotionNotifier{service: service, databaseID: databaseID, currency: currency}
}

// Notify implements Notifier. Pages already present for a barcode are left
// untouched; pages whose barcode is no longer unused are archived.
func (n *NotionNotifier) Notify(ctx context.Context, msg Message) error {
	log := logger.FromContext(ctx)

	pages, err := queryAllPages(ctx, n.service, n.databaseID)
	if err != nil {
		return fmt.Errorf("NotionNotifier.Notify: %w", err)
	}

	current := make(map[string]bool, len(msg.Coupons))
	for _, c := range msg.Coupons {
		current[c.BarcodeNumber] = true
	}

	existing := make(map[string]bool, len(pages))
	var archived int
	for _, page := range pages {
		barcode := extractBarcode(page)
		existing[barcode] = true
		if barcode != "" && current[barcode] {
			continue
		}
		if err := n.service.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).
				Str("barcode_number", barcode).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		archived++
	}

	var created, failed int
	for _, c := range msg.Coupons {
		if existing[c.BarcodeNumber] {
			continue
		}
		page, err := n.service.CreatePage(ctx, n.databaseID, CouponToNotionProperties(c, n.currency))
		if err != nil {
			log.Warn().Err(err).
				Str("barcode_number", c.BarcodeNumber).
				Int64("order_id", c.OrderID).
				Msg("Failed to create Notion page for coupon")
			failed++
			continue
		}
		existing[c.BarcodeNumber] = true
		log.Debug().
			Str("barcode_number", c.BarcodeNumber).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page for coupon")
		created++
	}

	log.Info().
		Int("created", created).
		Int("archived", archived).
		Int("failed", failed).
		Int("total", len(msg.Coupons)).
		Msg("Notion sync completed")

	if failed > 0 {
		return fmt.Errorf("NotionNotifier.Notify: %d of %d pages not created", failed, len(msg.Coupons))
	}
	return nil
}

// queryAllPages follows the query cursor until the database is exhausted.
func queryAllPages(ctx context.Context, service NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := service.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}

func extractBarcode(page notionapi.Page) string {
	if prop, ok := page.Properties[PropBarcode]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok && len(title.Title) > 0 {
			return title.Title[0].PlainText
		}
	}
	return ""
}

var (
	_ Notifier = (*NotionNotifier)(nil)
	_ Notifier = (*SMTPNotifier)(nil)
)
