package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/usecase"
	"access-reconcile-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SyncRunner is the part of the sync orchestrator the API drives
type SyncRunner interface {
	Run(ctx context.Context) (*entity.RunReport, error)
	LastRun() *usecase.RunSnapshot
	Running() bool
}

// API serves the last reconciled snapshot and run control. Runs triggered
// in the background use ctx, the server's lifetime.
type API struct {
	ctx        context.Context
	runs       sync.WaitGroup
	runner     SyncRunner
	normalizer *usecase.Normalizer
	gatherer   prometheus.Gatherer
	version    string
	logger     logger.Logger
}

// NewAPI creates a new API handler
func NewAPI(ctx context.Context, runner SyncRunner, normalizer *usecase.Normalizer, gatherer prometheus.Gatherer, version string, logger logger.Logger) *API {
	return &API{
		ctx:        ctx,
		runner:     runner,
		normalizer: normalizer,
		gatherer:   gatherer,
		version:    version,
		logger:     logger,
	}
}

// RegisterRoutes registers the API routes with the given Gin router
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", a.healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/runs/last", a.lastRunHandler)
		v1.POST("/runs", a.triggerRunHandler)
		v1.GET("/apartments/:key", a.apartmentHandler)
	}
}

// accessView is one reconciled record as served over HTTP
type accessView struct {
	ApartmentKey   string  `json:"apartmentKey"`
	RawLabel       string  `json:"rawLabel"`
	Person         string  `json:"person"`
	GrantType      string  `json:"grantType"`
	LockID         int64   `json:"lockId"`
	LockName       string  `json:"lockName"`
	OwnerName      *string `json:"ownerName"`
	MonthlyFee     *string `json:"monthlyFee"`
	Debt           *string `json:"debt"`
	PaymentPartner *string `json:"paymentPartner"`
	OwnerConflict  bool    `json:"ownerConflict"`
}

func toAccessView(r entity.ReconciledRecord) accessView {
	v := accessView{
		ApartmentKey:   string(r.Entry.ApartmentKey),
		RawLabel:       r.Entry.RawLabel,
		Person:         string(r.Entry.Person),
		GrantType:      string(r.Entry.Grant.Kind),
		LockID:         r.Entry.Grant.LockID,
		LockName:       r.Entry.Grant.LockName,
		PaymentPartner: r.PaymentPartner,
		OwnerConflict:  r.OwnerConflict,
	}
	if r.Owner != nil {
		v.OwnerName = &r.Owner.OwnerName
		if r.Owner.MonthlyFee.Valid {
			s := r.Owner.MonthlyFee.Decimal.String()
			v.MonthlyFee = &s
		}
		if r.Owner.Debt.Valid {
			s := r.Owner.Debt.Decimal.String()
			v.Debt = &s
		}
	}
	return v
}

func (a *API) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": a.version,
		"running": a.runner.Running(),
	})
}

func (a *API) lastRunHandler(c *gin.Context) {
	last := a.runner.LastRun()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No completed sync run yet"})
		return
	}
	c.JSON(http.StatusOK, last.Report)
}

// triggerRunHandler starts a sync run in the background, or runs it inline
// with ?wait=true
func (a *API) triggerRunHandler(c *gin.Context) {
	if c.Query("wait") == "true" {
		report, err := a.runner.Run(c.Request.Context())
		switch {
		case errors.Is(err, entity.ErrRunInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync run failed: " + err.Error(), "report": report})
		default:
			c.JSON(http.StatusOK, report)
		}
		return
	}

	if a.runner.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": entity.ErrRunInProgress.Error()})
		return
	}

	a.runs.Add(1)
	go func() {
		defer a.runs.Done()
		if _, err := a.runner.Run(a.ctx); err != nil {
			a.logger.Error("Triggered sync run failed", "error", err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// Wait blocks until background runs started by the API have returned
func (a *API) Wait() {
	a.runs.Wait()
}

func (a *API) apartmentHandler(c *gin.Context) {
	last := a.runner.LastRun()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No completed sync run yet"})
		return
	}

	key := a.normalizer.Normalize(c.Param("key"))
	records := last.ByApartment(key)
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No access entries for apartment " + key.String()})
		return
	}

	views := make([]accessView, len(records))
	for i, r := range records {
		views[i] = toAccessView(r)
	}
	c.JSON(http.StatusOK, gin.H{
		"apartmentKey": key,
		"runId":        last.Report.RunID,
		"entries":      views,
	})
}
