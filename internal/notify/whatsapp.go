// Package notify builds customer notifications. WhatsApp is link-based:
// the admin UI opens a wa.me deep link with a prefilled message, no
// Business API involved.
package notify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/workflow"
)

// WALink returns a wa.me deep link that opens a chat with phone and the
// message prefilled. Ten-digit numbers get the Indian country code.
func WALink(phone, message string) string {
	digits := onlyDigits(phone)
	if len(digits) == 10 {
		digits = "91" + digits
	}
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(message)
}

// StatusMessage returns the customer-facing message for a status
// change. The initial Pending state has no notification.
func StatusMessage(o database.Order) (string, bool) {
	total := database.NumericToDecimal(o.Total).StringFixed(0)
	switch o.Status {
	case workflow.StatusApproved:
		return fmt.Sprintf("Hi %s, your order %s has been approved. Total: ₹%s. We will pack it shortly.", o.Name, o.OrderID, total), true
	case workflow.StatusRejected:
		return fmt.Sprintf("Hi %s, we are sorry, your order %s could not be processed. Please contact Bhumika Medical for details.", o.Name, o.OrderID), true
	case workflow.StatusPacked:
		return fmt.Sprintf("Hi %s, your order %s is packed and will go out for delivery soon.", o.Name, o.OrderID), true
	case workflow.StatusOutForDelivery:
		return fmt.Sprintf("Hi %s, your order %s is out for delivery. Please keep ₹%s ready if paying on delivery.", o.Name, o.OrderID, total), true
	case workflow.StatusDelivered:
		return fmt.Sprintf("Hi %s, your order %s has been delivered. Thank you for choosing Bhumika Medical!", o.Name, o.OrderID), true
	}
	return "", false
}

// ReminderMessage is the monthly refill nudge sent by the sweep.
func ReminderMessage(name, orderID string) string {
	return fmt.Sprintf("Hi %s, it has been a month since your order %s. Time to restock your medicines? Reply here or order at Bhumika Medical.", name, orderID)
}

// OrderSummaryMessage renders the full order as a WhatsApp message for
// the place-order-via-WhatsApp flow to the pharmacy's own number.
func OrderSummaryMessage(o database.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s\n", o.OrderID)
	fmt.Fprintf(&b, "Name: %s\nPhone: %s\nAddress: %s, %s\n\n", o.Name, o.Phone, o.Address, o.Pin)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "%s x%d @ ₹%s\n", item.Name, item.Qty, item.Price.StringFixed(0))
	}
	fmt.Fprintf(&b, "\nSubtotal: ₹%s\nDiscount: ₹%s\nTotal: ₹%s",
		database.NumericToDecimal(o.Subtotal).StringFixed(0),
		database.NumericToDecimal(o.Discount).StringFixed(0),
		database.NumericToDecimal(o.Total).StringFixed(0))
	return b.String()
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
