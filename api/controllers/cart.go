package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oakline/storefront-core/api/middleware"
	"github.com/oakline/storefront-core/api/responses"
	"github.com/oakline/storefront-core/api/validators"
	"github.com/oakline/storefront-core/internal/registry"
	"github.com/oakline/storefront-core/internal/session"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
	"github.com/oakline/storefront-core/pkg/logger"
)

type addCartItemPayload struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	VariantID *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
}

type setQuantityPayload struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

func requireIdentity(r *http.Request) (session.Identity, error) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		return session.Identity{}, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "authentication required")
	}
	return *identity, nil
}

// CartFetch returns the cart scoped to the authenticated user, loading it
// from the remote store on first access.
func CartFetch(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartViewFrom(pair.Cart))
	}
}

// CartSummary returns just the derived totals, for badge rendering.
func CartSummary(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartSummaryView{
			ItemCount:     pair.Cart.ItemCount(),
			Total:         pair.Cart.Total(),
			SelectedTotal: pair.Cart.SelectedTotal(),
		})
	}
}

// CartAddItem adds a product to the cart, merging quantity into an existing
// line for the same product and variant.
func CartAddItem(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload addCartItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var variantID *uuid.UUID
		if payload.VariantID != nil {
			parsed, err := uuid.Parse(*payload.VariantID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id"))
				return
			}
			variantID = &parsed
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := pair.Cart.AddItem(ctx, productID, payload.Quantity, variantID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cartViewFrom(pair.Cart))
	}
}

// CartSetQuantity sets a line's quantity; zero removes the line.
func CartSetQuantity(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload setQuantityPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := pair.Cart.SetQuantity(ctx, lineID, payload.Quantity); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartViewFrom(pair.Cart))
	}
}

// CartRemoveItem removes a line outright.
func CartRemoveItem(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := pair.Cart.RemoveItem(ctx, lineID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartViewFrom(pair.Cart))
	}
}

// CartClear empties the cart in one remote call.
func CartClear(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := pair.Cart.Clear(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartViewFrom(pair.Cart))
	}
}

// CartToggleSelection flips the local checkout selection for one line.
func CartToggleSelection(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := pair.Cart.ToggleSelection(lineID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartViewFrom(pair.Cart))
	}
}

// CartSelectAll marks every line selected for checkout.
func CartSelectAll(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair.Cart.SelectAll()
		responses.WriteSuccess(w, cartViewFrom(pair.Cart))
	}
}

// CartDeselectAll clears every checkout selection.
func CartDeselectAll(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		pair.Cart.DeselectAll()
		responses.WriteSuccess(w, cartViewFrom(pair.Cart))
	}
}

// CartMoveToFavorites removes a line and saves its product.
func CartMoveToFavorites(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := reg.MoveToFavorites(ctx, identity, lineID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"moved": true})
	}
}
