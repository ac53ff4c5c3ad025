// Package httpapi exposes the evaluation engine over HTTP. Amounts and
// performances are rendered as strings to avoid float rounding on the wire.
package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simaogato/noteval-backend/internal/domain"
	"github.com/simaogato/noteval-backend/internal/usecase/evaluation"
	"github.com/simaogato/noteval-backend/internal/usecase/marketdata"
)

const dateLayout = "2006-01-02"

// Server wires the HTTP routes to the use case services.
type Server struct {
	Products domain.ProductRepository
	Prices   *marketdata.Service
	Runner   *evaluation.Runner
}

// NewServer creates a new HTTP server instance
func NewServer(products domain.ProductRepository, prices *marketdata.Service, runner *evaluation.Runner) *Server {
	return &Server{
		Products: products,
		Prices:   prices,
		Runner:   runner,
	}
}

// Routes builds the gin engine with all v1 routes behind token auth.
func (s *Server) Routes(token string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/v1", AuthMiddleware(token))
	{
		v1.GET("/products", s.listProducts)
		v1.POST("/products", s.createProduct)
		v1.GET("/products/:isin", s.getProduct)
		v1.POST("/products/:isin/evaluate", s.evaluateProduct)
		v1.GET("/prices/:ticker", s.getPrice)
	}

	return router
}

type underlyingDTO struct {
	Ticker     string `json:"ticker"`
	InternalID string `json:"internal_id,omitempty"`
	Symbol     string `json:"symbol,omitempty"`
	Name       string `json:"name,omitempty"`
}

type productDTO struct {
	ID               string          `json:"id,omitempty"`
	ISIN             string          `json:"isin"`
	Name             string          `json:"name"`
	TradeDate        string          `json:"trade_date"`
	MaturityDate     string          `json:"maturity_date"`
	FinalObservation string          `json:"final_observation,omitempty"`
	Underlyings      []underlyingDTO `json:"underlyings"`
}

type conditionDTO struct {
	Type       string `json:"type"`
	Underlying string `json:"underlying,omitempty"`
	Level      string `json:"level,omitempty"`
	Coupon     string `json:"coupon,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
}

type observationDTO struct {
	Date       string         `json:"date"`
	Conditions []conditionDTO `json:"conditions"`
}

type evaluateRequest struct {
	Schedule []observationDTO `json:"schedule"`
}

type conditionResultDTO struct {
	Type        string `json:"type"`
	Triggered   bool   `json:"triggered"`
	Performance string `json:"performance"`
	Level       string `json:"level"`
	Amount      string `json:"amount"`
	Detail      string `json:"detail,omitempty"`
}

type observationOutcomeDTO struct {
	Date       string               `json:"date"`
	Autocalled bool                 `json:"autocalled"`
	Results    []conditionResultDTO `json:"results"`
}

type runReportDTO struct {
	ProductISIN     string                  `json:"product_isin"`
	Autocalled      bool                    `json:"autocalled"`
	AutocallDate    string                  `json:"autocall_date,omitempty"`
	TotalCoupons    string                  `json:"total_coupons"`
	FinalRedemption string                  `json:"final_redemption,omitempty"`
	Observations    []observationOutcomeDTO `json:"observations"`
	ErrorCount      int                     `json:"error_count"`
	EventCount      int                     `json:"event_count"`
}

// listProducts handles GET /v1/products
func (s *Server) listProducts(c *gin.Context) {
	products, err := s.Products.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	dtos := make([]productDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": dtos})
}

// getProduct handles GET /v1/products/:isin
func (s *Server) getProduct(c *gin.Context) {
	product, err := s.Products.GetByISIN(c.Request.Context(), c.Param("isin"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toProductDTO(product))
}

// createProduct handles POST /v1/products
func (s *Server) createProduct(c *gin.Context) {
	var req productDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	product, err := fromProductDTO(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := product.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.Products.Create(c.Request.Context(), product); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toProductDTO(product))
}

// evaluateProduct handles POST /v1/products/:isin/evaluate
func (s *Server) evaluateProduct(c *gin.Context) {
	product, err := s.Products.GetByISIN(c.Request.Context(), c.Param("isin"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Schedule) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "schedule cannot be empty"})
		return
	}

	schedule := make([]domain.Observation, 0, len(req.Schedule))
	for _, obs := range req.Schedule {
		date, err := time.Parse(dateLayout, obs.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid observation date: " + obs.Date})
			return
		}
		conditions := make([]domain.ObservationCondition, 0, len(obs.Conditions))
		for _, cond := range obs.Conditions {
			conditions = append(conditions, domain.ObservationCondition{
				Type:       domain.ConditionType(cond.Type),
				Underlying: cond.Underlying,
				Level:      cond.Level,
				Coupon:     cond.Coupon,
				Bucket:     cond.Bucket,
			})
		}
		schedule = append(schedule, domain.Observation{Date: date, Conditions: conditions})
	}

	report, err := s.Runner.Run(c.Request.Context(), product, schedule)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toRunReportDTO(report))
}

// getPrice handles GET /v1/prices/:ticker?date=YYYY-MM-DD&type=close
func (s *Server) getPrice(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + raw})
			return
		}
		date = parsed
	}

	priceType := domain.PriceType(c.Query("type"))
	quote, err := s.Prices.GetPrice(c.Request.Context(), c.Param("ticker"), date, priceType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if quote == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticker":    quote.Ticker,
		"value":     quote.Value.String(),
		"date":      quote.Date.Format(dateLayout),
		"days_back": quote.DaysBack,
		"source":    quote.Source,
	})
}

func toProductDTO(p *domain.Product) productDTO {
	dto := productDTO{
		ID:           p.ID.String(),
		ISIN:         p.ISIN,
		Name:         p.Name,
		TradeDate:    p.TradeDate.Format(dateLayout),
		MaturityDate: p.MaturityDate.Format(dateLayout),
	}
	if p.FinalObservation != nil {
		dto.FinalObservation = p.FinalObservation.Format(dateLayout)
	}
	for _, u := range p.Underlyings {
		dto.Underlyings = append(dto.Underlyings, underlyingDTO{
			Ticker:     u.Ticker,
			InternalID: u.InternalID,
			Symbol:     u.Symbol,
			Name:       u.Name,
		})
	}
	return dto
}

func fromProductDTO(dto productDTO) (*domain.Product, error) {
	tradeDate, err := time.Parse(dateLayout, dto.TradeDate)
	if err != nil {
		return nil, errInvalidDate("trade_date", dto.TradeDate)
	}
	maturityDate, err := time.Parse(dateLayout, dto.MaturityDate)
	if err != nil {
		return nil, errInvalidDate("maturity_date", dto.MaturityDate)
	}

	product := &domain.Product{
		ISIN:         dto.ISIN,
		Name:         dto.Name,
		TradeDate:    tradeDate,
		MaturityDate: maturityDate,
	}
	if dto.FinalObservation != "" {
		finalObs, err := time.Parse(dateLayout, dto.FinalObservation)
		if err != nil {
			return nil, errInvalidDate("final_observation", dto.FinalObservation)
		}
		product.FinalObservation = &finalObs
	}
	for _, u := range dto.Underlyings {
		product.Underlyings = append(product.Underlyings, domain.Underlying{
			Ticker:     u.Ticker,
			InternalID: u.InternalID,
			Symbol:     u.Symbol,
			Name:       u.Name,
		})
	}
	return product, nil
}

func toRunReportDTO(report *domain.RunReport) runReportDTO {
	dto := runReportDTO{
		ProductISIN:  report.ProductISIN,
		Autocalled:   report.Autocalled,
		TotalCoupons: report.TotalCoupons.String(),
		ErrorCount:   report.Summary.ErrorCount,
		EventCount:   report.Summary.EventCount,
	}
	if report.AutocallDate != nil {
		dto.AutocallDate = report.AutocallDate.Format(dateLayout)
	}
	if report.FinalRedemption != nil {
		dto.FinalRedemption = report.FinalRedemption.String()
	}
	for _, obs := range report.Observations {
		outcome := observationOutcomeDTO{
			Date:       obs.Date.Format(dateLayout),
			Autocalled: obs.Autocalled,
		}
		for _, r := range obs.Results {
			outcome.Results = append(outcome.Results, conditionResultDTO{
				Type:        string(r.Type),
				Triggered:   r.Triggered,
				Performance: r.Performance.String(),
				Level:       r.Level.String(),
				Amount:      r.Amount.String(),
				Detail:      r.Detail,
			})
		}
		dto.Observations = append(dto.Observations, outcome)
	}
	return dto
}

func errInvalidDate(field, value string) error {
	return fmt.Errorf("invalid %s: %q (expected %s)", field, value, dateLayout)
}
