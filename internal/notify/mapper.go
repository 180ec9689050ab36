package notify

import (
	"strconv"
	"time"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the coupons database.
const (
	PropBarcode   = "Barcode"
	PropAmount    = "Amount"
	PropCurrency  = "Currency"
	PropValidDate = "Valid Date"
	PropImage     = "Image"
	PropOrderID   = "Order ID"
	PropStatus    = "Status"
)

// CouponToNotionProperties converts a coupon to the properties of its page.
func CouponToNotionProperties(c domain.CouponRecord, currency string) notionapi.Properties {
	props := notionapi.Properties{
		PropBarcode: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: c.BarcodeNumber},
				},
			},
		},
		PropAmount: notionapi.NumberProperty{
			Number: c.Amount.InexactFloat64(),
		},
		PropOrderID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: strconv.FormatInt(c.OrderID, 10)},
				},
			},
		},
	}

	if currency != "" {
		props[PropCurrency] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: currency},
		}
	}

	if c.ImageURL != "" {
		props[PropImage] = notionapi.URLProperty{URL: c.ImageURL}
	}

	if c.OrderStatus != "" {
		props[PropStatus] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: c.OrderStatus},
		}
	}

	// Unparseable vendor dates are left off the page.
	if d, err := c.ValidOn(); err == nil {
		start := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
		props[PropValidDate] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &start},
		}
	}

	return props
}
