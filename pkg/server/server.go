package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"github.com/shopspring/decimal"

	"github.com/golem/orderbook/pkg/orderbook"

	"github.com/labstack/echo/v4"
)

var defaultPort = ":1323"
var interval = time.Millisecond * 500
var pushProcessMetrics = false
var metricsEnabled = false

// Engine wires an orderbook.LimitOrderBook up to a read/write HTTP surface.
// The book itself is single-threaded (see pkg/orderbook); mu is the only
// thing making it safe to share between the HTTP handlers and any future
// background refresh goroutine.
type Engine struct {
	srv *echo.Echo
	mu  deadlock.Mutex
	book *orderbook.LimitOrderBook
}

// NewServer returns a new server.Engine wrapping book.
func NewServer(book *orderbook.LimitOrderBook) *Engine {
	e := echo.New()
	engine := &Engine{book: book}

	if metricsEnabled {
		if err := metrics.InitPush("http://localhost:8428/write", interval, `label="orderbook"`, pushProcessMetrics); err != nil {
			e.Logger.Fatalf("failed to connect to metrics platform: %+v", err)
		}
	}

	e.Use(count)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"name":    "golem",
			"version": "0.1",
		})
	})

	e.GET("/book", engine.getBook)
	e.GET("/levels/:side", engine.getLevels)
	e.GET("/best", engine.getBest)
	e.GET("/orders/:uid", engine.getOrder)
	e.POST("/orders", engine.postOrder)
	e.DELETE("/orders/:uid", engine.deleteOrder)

	engine.srv = e
	engine.srv.Logger.Debugf("server created")

	metrics.NewGauge("orderbook_node_count", func() float64 {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return float64(engine.book.NodeCount())
	})
	metrics.NewGauge("orderbook_outliers", func() float64 {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return float64(engine.book.Outliers())
	})
	metrics.NewGauge("orderbook_items_processed", func() float64 {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return float64(engine.book.ItemsProcessed())
	})

	return engine
}

// Run starts the engine at defaultPort.
func (eng *Engine) Run() error {
	return eng.srv.Start(defaultPort)
}

func (eng *Engine) getBook(c echo.Context) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"bid_levels":      eng.book.Levels(orderbook.Bid),
		"ask_levels":      eng.book.Levels(orderbook.Ask),
		"node_count":      eng.book.NodeCount(),
		"items_processed": eng.book.ItemsProcessed(),
		"outliers":        eng.book.Outliers(),
	})
}

func (eng *Engine) getLevels(c echo.Context) error {
	side, err := parseSide(c.Param("side"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	eng.mu.Lock()
	defer eng.mu.Unlock()
	return c.JSON(http.StatusOK, eng.book.Levels(side))
}

func (eng *Engine) getBest(c echo.Context) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	resp := map[string]interface{}{}
	if bid, ok := eng.book.BestBid(); ok {
		resp["best_bid"] = bid
	}
	if ask, ok := eng.book.BestAsk(); ok {
		resp["best_ask"] = ask
	}
	return c.JSON(http.StatusOK, resp)
}

func (eng *Engine) getOrder(c echo.Context) error {
	uid := c.Param("uid")
	eng.mu.Lock()
	defer eng.mu.Unlock()
	o, ok := eng.book.GetOrder(uid)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no resting order for that uid")
	}
	return c.JSON(http.StatusOK, o)
}

// submittedOrder is the wire shape accepted by POST /orders. UID is
// optional; when omitted the server mints one, matching spec.md's rule that
// the core library itself never generates a uid.
type submittedOrder struct {
	UID   string          `json:"uid"`
	Side  string          `json:"side"`
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

func (eng *Engine) postOrder(c echo.Context) error {
	var in submittedOrder
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	side, err := parseSide(in.Side)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.UID == "" {
		in.UID = uuid.NewString()
	}

	order := &orderbook.Order{
		UID:       in.UID,
		Side:      side,
		Price:     in.Price,
		Size:      in.Size,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	eng.mu.Lock()
	eng.book.Insert(order)
	eng.mu.Unlock()

	c.Logger().Infof("order received: %+v", order)
	return c.JSON(http.StatusAccepted, order)
}

func (eng *Engine) deleteOrder(c echo.Context) error {
	uid := c.Param("uid")
	eng.mu.Lock()
	eng.book.Remove(uid)
	eng.mu.Unlock()
	return c.NoContent(http.StatusNoContent)
}

func parseSide(s string) (orderbook.Side, error) {
	switch s {
	case "bid", "bids", "buy":
		return orderbook.Bid, nil
	case "ask", "asks", "sell":
		return orderbook.Ask, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

func count(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := metrics.GetOrCreateCounter(fmt.Sprintf(`requests_total{path="%s"}`, c.Path()))
		path.Inc()
		counter := metrics.GetOrCreateCounter(`request_total`)
		counter.Add(1)
		return next(c)
	}
}
