package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakline/storefront-core/internal/gateway"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
)

const (
	cartTable      = "cart_lines"
	cartLineSelect = "id,product_id,variant_id,quantity,product:products(id,name,slug,base_price,sale_price,image_url)"
)

type productRow struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	BasePrice decimal.Decimal  `json:"base_price"`
	SalePrice *decimal.Decimal `json:"sale_price"`
	ImageURL  string           `json:"image_url"`
}

func (r productRow) snapshot() gateway.ProductSnapshot {
	return gateway.ProductSnapshot{
		ProductID: r.ID,
		Name:      r.Name,
		Slug:      r.Slug,
		BasePrice: r.BasePrice,
		SalePrice: r.SalePrice,
		ImageURL:  r.ImageURL,
	}
}

type cartLineRow struct {
	ID        uuid.UUID  `json:"id"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity"`
	Product   productRow `json:"product"`
}

func (r cartLineRow) toLine() gateway.CartLine {
	return gateway.CartLine{
		ID:        r.ID,
		ProductID: r.ProductID,
		VariantID: r.VariantID,
		Quantity:  r.Quantity,
		Product:   r.Product.snapshot(),
	}
}

// FetchCartLines returns every cart row for the user with its product join.
func (c *Client) FetchCartLines(ctx context.Context, userID uuid.UUID) ([]gateway.CartLine, error) {
	query := url.Values{}
	query.Set("select", cartLineSelect)
	query.Set("user_id", "eq."+userID.String())

	var rows []cartLineRow
	if err := c.doRead(ctx, c.restURL(cartTable, query.Encode()), &rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteRead, err, "fetch cart lines")
	}

	lines := make([]gateway.CartLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.toLine())
	}
	return lines, nil
}

// InsertCartLine creates a row and returns its joined representation.
func (c *Client) InsertCartLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, quantity int) (gateway.CartLine, error) {
	query := url.Values{}
	query.Set("select", cartLineSelect)

	payload := map[string]any{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	}
	if variantID != nil {
		payload["variant_id"] = *variantID
	}

	headers := map[string]string{"Prefer": "return=representation"}
	var rows []cartLineRow
	if err := c.do(ctx, http.MethodPost, c.restURL(cartTable, query.Encode()), payload, headers, &rows); err != nil {
		return gateway.CartLine{}, pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "insert cart line")
	}
	if len(rows) == 0 {
		return gateway.CartLine{}, pkgerrors.New(pkgerrors.CodeRemoteWrite, "insert cart line: no row returned")
	}
	return rows[0].toLine(), nil
}

// UpdateCartLineQuantity sets the stored quantity for a line.
func (c *Client) UpdateCartLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	query := url.Values{}
	query.Set("id", "eq."+lineID.String())

	payload := map[string]any{"quantity": quantity}
	if err := c.do(ctx, http.MethodPatch, c.restURL(cartTable, query.Encode()), payload, nil, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, fmt.Sprintf("update cart line %s", lineID))
	}
	return nil
}

// DeleteCartLine removes a single line.
func (c *Client) DeleteCartLine(ctx context.Context, lineID uuid.UUID) error {
	query := url.Values{}
	query.Set("id", "eq."+lineID.String())

	if err := c.do(ctx, http.MethodDelete, c.restURL(cartTable, query.Encode()), nil, nil, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, fmt.Sprintf("delete cart line %s", lineID))
	}
	return nil
}

// DeleteAllCartLines removes every line belonging to the user.
func (c *Client) DeleteAllCartLines(ctx context.Context, userID uuid.UUID) error {
	query := url.Values{}
	query.Set("user_id", "eq."+userID.String())

	if err := c.do(ctx, http.MethodDelete, c.restURL(cartTable, query.Encode()), nil, nil, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteWrite, err, "clear cart lines")
	}
	return nil
}
