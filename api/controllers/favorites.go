package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oakline/storefront-core/api/responses"
	"github.com/oakline/storefront-core/api/validators"
	"github.com/oakline/storefront-core/internal/registry"
	pkgerrors "github.com/oakline/storefront-core/pkg/errors"
	"github.com/oakline/storefront-core/pkg/logger"
)

type toggleFavoritePayload struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// FavoritesList returns the user's saved products, newest first.
func FavoritesList(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
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

		responses.WriteSuccess(w, favoritesViewFrom(pair.Favorites))
	}
}

// FavoritesIDs returns only saved product ids, for heart-icon hydration.
func FavoritesIDs(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
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

		responses.WriteSuccess(w, map[string][]uuid.UUID{"product_ids": pair.Favorites.ProductIDs()})
	}
}

// FavoritesToggle saves the product, or removes it when already saved.
func FavoritesToggle(reg *registry.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload toggleFavoritePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		pair, err := reg.ForIdentity(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := pair.Favorites.Toggle(ctx, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"favorited": pair.Favorites.IsFavorite(productID)})
	}
}
