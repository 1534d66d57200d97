package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"

	"github.com/lk2023060901/crcstream/pkg/config"
	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/util/conc"
)

// Client 持有独立的 Registry 与可选的 HTTP 暴露端点
type Client struct {
	config   *Config
	registry *prometheus.Registry
	recorder *Recorder
	logger   logger.Logger

	httpServer  *http.Server
	listener    net.Listener
	serveFuture *conc.Future[struct{}]

	closed atomic.Bool
}

// New 创建指标客户端，cfg 中未设置的字段取默认值
func New(cfg *Config, l logger.Logger) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNoop()
	}

	c := &Client{
		config:   merged,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("metrics"),
	}

	if merged.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if merged.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	c.recorder, err = NewRecorder(c.registry, merged.Namespace, merged.Subsystem)
	if err != nil {
		return nil, err
	}

	if merged.HTTPServer.Enabled {
		if err := c.startHTTPServer(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Registry 返回底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Recorder 返回注册在本客户端上的 Recorder
func (c *Client) Recorder() *Recorder {
	return c.recorder
}

// Handler 返回暴露指标的 HTTP Handler
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Addr 返回 HTTP 服务器实际监听的地址，未启动时为空
func (c *Client) Addr() string {
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

func (c *Client) startHTTPServer() error {
	ln, err := net.Listen("tcp", c.config.HTTPServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", c.config.HTTPServer.Addr)
	}
	c.listener = ln

	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())

	c.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	c.serveFuture = conc.Go(func() (struct{}, error) {
		if err := c.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics http server stopped", "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	c.logger.Info("metrics http server started", "addr", ln.Addr().String(), "path", c.config.HTTPServer.Path)
	return nil
}

// Close 关闭 HTTP 服务器
func (c *Client) Close() error {
	if !c.closed.CAS(false, true) {
		return ErrClientClosed
	}

	if c.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.httpServer.Shutdown(ctx); err != nil {
			return err
		}
		return c.serveFuture.Err()
	}

	return nil
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
