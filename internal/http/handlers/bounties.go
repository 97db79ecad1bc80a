package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/buildhubhq/buildhub/internal/cache"
	"github.com/buildhubhq/buildhub/internal/domain/bounty"
)

type BountiesAPI interface {
	ListBounties(ctx context.Context, filter bounty.ListFilter) ([]bounty.Bounty, error)
	GetBounty(ctx context.Context, id string) (bounty.Bounty, error)
	CreateBounty(ctx context.Context, body any) (bounty.Bounty, error)
	UpdateBounty(ctx context.Context, id string, body any) (bounty.Bounty, error)
	DeleteBounty(ctx context.Context, id string) error
}

type BountiesHandler struct {
	api  BountiesAPI
	list *cache.Cache[[]bounty.Bounty]
	log  *slog.Logger
}

func NewBountiesHandler(api BountiesAPI, listCache *cache.Cache[[]bounty.Bounty], log *slog.Logger) *BountiesHandler {
	if log == nil {
		log = slog.Default()
	}

	return &BountiesHandler{
		api:  api,
		list: listCache,
		log:  log,
	}
}

// List serves the bounty board. Results are memoized per filter combination
// for the cache TTL, and the response carries an ETag for revalidation.
func (h *BountiesHandler) List(ctx *gin.Context) {
	filter := listFilterFromQuery(ctx)
	key := listCacheKey(filter)

	if h.list != nil {
		if cached, ok := h.list.Get(key); ok {
			RespondJSONWithETag(ctx, http.StatusOK, gin.H{"ok": true, "bounties": cached})
			return
		}
	}

	bounties, err := h.api.ListBounties(ctx.Request.Context(), filter)

	if err != nil {
		h.log.Error("bounty list failed", "err", err)
		RespondUpstream(ctx, err, "Failed to fetch bounties.")
		return
	}

	if h.list != nil {
		h.list.Set(key, bounties)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"ok": true, "bounties": bounties})
}

func (h *BountiesHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	b, err := h.api.GetBounty(ctx.Request.Context(), id)

	if err != nil {
		h.log.Error("bounty fetch failed", "id", id, "err", err)
		RespondUpstream(ctx, err, "Failed to fetch bounty.")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "bounty": b})
}

func (h *BountiesHandler) Create(ctx *gin.Context) {
	var req bounty.CreateBountyRequest

	if !BindJSON(ctx, &req) {
		return
	}

	created, err := h.api.CreateBounty(ctx.Request.Context(), req)

	if err != nil {
		h.log.Error("bounty create failed", "err", err)
		RespondUpstream(ctx, err, "Failed to create bounty.")
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusCreated, gin.H{"ok": true, "bounty": created})
}

func (h *BountiesHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	var req bounty.UpdateBountyRequest

	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := h.api.UpdateBounty(ctx.Request.Context(), id, req)

	if err != nil {
		h.log.Error("bounty update failed", "id", id, "err", err)
		RespondUpstream(ctx, err, "Failed to update bounty.")
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "bounty": updated})
}

func (h *BountiesHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.api.DeleteBounty(ctx.Request.Context(), id); err != nil {
		h.log.Error("bounty delete failed", "id", id, "err", err)
		RespondUpstream(ctx, err, "Failed to delete bounty.")
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

// any mutation spoils every cached filter combination
func (h *BountiesHandler) invalidateList() {
	if h.list != nil {
		h.list.Clear()
	}
}

func listFilterFromQuery(ctx *gin.Context) bounty.ListFilter {
	var filter bounty.ListFilter

	if v, ok := ctx.GetQuery("status"); ok {
		filter.Status = &v
	}

	if v, ok := ctx.GetQuery("category"); ok {
		filter.Category = &v
	}

	if v, ok := ctx.GetQuery("createdBy"); ok {
		filter.CreatedBy = &v
	}

	return filter
}

func listCacheKey(filter bounty.ListFilter) string {
	q := url.Values{}

	if filter.Status != nil {
		q.Set("status", *filter.Status)
	}

	if filter.Category != nil {
		q.Set("category", *filter.Category)
	}

	if filter.CreatedBy != nil {
		q.Set("createdBy", *filter.CreatedBy)
	}

	return q.Encode()
}
