package main

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"costwatch/config"
	"costwatch/internal/cron"
	"costwatch/internal/database/mongodb/repository"
	"costwatch/internal/ingest"
	"costwatch/internal/monitor"
	"costwatch/internal/service"
	"costwatch/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RuntimeInfo struct {
	Env       string        `json:"env"`
	Name      string        `json:"name"`
	Version   string        `json:"version"`
	GoVersion string        `json:"go_version"`
	StartAt   time.Time     `json:"start_at"`
	Uptime    time.Duration `json:"uptime"`
}

type App struct {
	conf            *config.Configuration
	logger          *zap.Logger
	cronSrv         *cron.Cron
	Router          *gin.Engine
	httpServer      *http.Server
	healthService   *service.HealthService
	costRepo        *repository.CostEventRepository
	budgetMonitor   *monitor.BudgetMonitor
	ingestor        *ingest.CostIngestor
	budgetCollector *telemetry.BudgetCollector

	ingestCancel context.CancelFunc

	startAt time.Time   // 程式啟動時間（非環境變數）
	appInfo RuntimeInfo // 版本/環境快照（來源 = conf.App）
}

func newHttpServer(
	conf *config.Configuration,
	router *gin.Engine,
) *http.Server {
	return &http.Server{
		Addr:    ":" + strconv.FormatUint(uint64(conf.App.Port), 10),
		Handler: router,
	}
}

func newApp(
	conf *config.Configuration,
	logger *zap.Logger,
	router *gin.Engine,
	httpServer *http.Server,
	healthService *service.HealthService,
	costRepo *repository.CostEventRepository,
	budgetMonitor *monitor.BudgetMonitor,
	ingestor *ingest.CostIngestor,
	budgetCollector *telemetry.BudgetCollector,
	cronSrv *cron.Cron,
) *App {
	startAt := time.Now()
	return &App{
		conf:            conf,
		logger:          logger,
		Router:          router,
		httpServer:      httpServer,
		healthService:   healthService,
		costRepo:        costRepo,
		budgetMonitor:   budgetMonitor,
		ingestor:        ingestor,
		budgetCollector: budgetCollector,
		cronSrv:         cronSrv,
		startAt:         startAt,
		appInfo: RuntimeInfo{
			Env:       conf.App.Env,
			Name:      conf.App.Name,
			Version:   conf.App.Version,
			GoVersion: runtime.Version(),
			StartAt:   startAt,
		},
	}
}

// Run 啟動順序固定：索引 → 暖機 → ingestion → cron → http → ready
// 任一前置步驟失敗直接回傳錯誤（main 會 panic），絕不在暖機失敗的狀態下開放記帳
func (a *App) Run() error {
	// 1) 啟動時寫入版本/環境資訊
	info := a.appInfo
	a.logger.Info("app runtime info",
		zap.String("env", info.Env),
		zap.String("name", info.Name),
		zap.String("version", info.Version),
		zap.String("go_version", info.GoVersion),
		zap.Time("start_at", info.StartAt),
	)

	// 2) 動態掛到現有 gin.Engine：加 X-App-Version 標頭與 /version API
	if a.Router != nil {
		// 全域版本標頭（只用 conf.App.Version）
		a.Router.Use(func(c *gin.Context) {
			if v := a.conf.App.Version; v != "" {
				c.Writer.Header().Set("X-App-Version", v)
			}
			c.Next()
		})
		// /version：回傳 JSON（含 uptime）
		a.Router.GET("/version", func(c *gin.Context) {
			resp := a.appInfo
			resp.Uptime = time.Since(a.startAt)
			c.JSON(http.StatusOK, resp)
		})
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3) 索引必須先就緒（含 TTL 保留策略）
	if err := a.costRepo.EnsureIndexes(startupCtx); err != nil {
		return err
	}
	a.logger.Info("cost event indexes ensured")

	// 4) 暖機：從儲存層重建本日/本月累計
	if err := a.budgetMonitor.WarmUp(startupCtx, a.costRepo); err != nil {
		return err
	}

	// 5) 開放事件訂閱（只有在索引與暖機都成功後）
	ingestCtx, ingestCancel := context.WithCancel(context.Background())
	a.ingestCancel = ingestCancel
	a.ingestor.Start(ingestCtx)

	// 6) 啟動 cron
	if err := a.cronSrv.Run(); err != nil {
		return err
	}
	a.logger.Info("cron server started")

	// 7) 啟動 http server
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server exited", zap.Error(err))
		}
	}()

	a.healthService.SetReady(true)
	return nil
}

// Close 關機順序與啟動相反：先擋流量，再收 ingestion，最後關 http
func (a *App) Close(ctx context.Context) error {
	if a.healthService != nil {
		a.healthService.SetReady(false)
	}

	if a.ingestCancel != nil {
		a.ingestCancel()
		a.ingestor.WaitStopped(3 * time.Second)
	}

	if a.cronSrv != nil {
		if err := a.cronSrv.Stop(ctx); err != nil {
			return err
		}
		a.logger.Info("cron server has been stop")
	}

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			return err
		}
		a.logger.Info("http server has been stop")
	}

	a.budgetMonitor.Close()
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	return a.Close(ctx)
}
