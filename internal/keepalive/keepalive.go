package keepalive

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger 周期性地 ping 自身地址，防止免费托管平台休眠进程。
type Pinger struct {
	url      string
	interval time.Duration
	http     *http.Client
	log      *zap.Logger
}

// NewPinger 创建保活 Pinger。
func NewPinger(url string, interval time.Duration, log *zap.Logger) *Pinger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pinger{
		url:      url,
		interval: interval,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// Run 先立即 ping 一次，之后按间隔持续 ping，直到 ctx 取消。
func (p *Pinger) Run(ctx context.Context) {
	p.ping(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("keepalive pinger stopped")
			return
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

// ping 发送一次保活请求；失败只记日志。
func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.log.Error("keepalive request build failed", zap.String("url", p.url), zap.Error(err))
		return
	}

	resp, err := p.http.Do(req)
	if err != nil {
		p.log.Warn("keepalive ping failed", zap.String("url", p.url), zap.Error(err))
		return
	}
	resp.Body.Close()

	p.log.Debug("keepalive ping sent",
		zap.String("url", p.url),
		zap.Int("status", resp.StatusCode),
	)
}
