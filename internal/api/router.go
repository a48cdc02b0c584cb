package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LJTian/PautaFacil/internal/headline"
	"github.com/LJTian/PautaFacil/internal/logger"
	"github.com/LJTian/PautaFacil/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Refresher 由 scheduler.Orchestrator 实现
type Refresher interface {
	Refresh(ctx context.Context) (*scheduler.CycleReport, error)
	HardRefresh(ctx context.Context) (*scheduler.CycleReport, error)
	Running() bool
}

// HistoryReader 由 storage.Archive 实现
type HistoryReader interface {
	Recent(ctx context.Context, sourceID string, limit int) ([]headline.Record, error)
}

type Server struct {
	board     *Board
	refresher Refresher
	history   HistoryReader
	log       logger.Interface
	now       func() time.Time
}

// NewServer history 为 nil 时历史接口返回 404
func NewServer(board *Board, refresher Refresher, history HistoryReader, log logger.Interface) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		board:     board,
		refresher: refresher,
		history:   history,
		log:       log,
		now:       time.Now,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(dashboardTemplate)
	r.GET("/health", s.health)
	r.GET("/", s.dashboard)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/cards", s.listCards)
		v1.GET("/progress", s.progress)
		v1.POST("/refresh", s.refresh)
		v1.GET("/sources/:id/history", s.sourceHistory)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":      "ok",
		"message":   "success",
		"data":      s.board.Cards(),
		"updatedAt": s.board.UpdatedAt(),
	})
}

func (s *Server) progress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data": gin.H{
			"progress": s.board.Progress(),
			"running":  s.refresher.Running(),
		},
	})
}

// refresh 默认在后台执行并立即返回 202；wait=true 时同步等待本轮结束
func (s *Server) refresh(c *gin.Context) {
	hard := c.Query("hard") == "true"
	run := s.refresher.Refresh
	if hard {
		run = s.refresher.HardRefresh
	}

	if c.Query("wait") == "true" {
		report, err := run(c.Request.Context())
		if err != nil {
			s.refreshError(c, err)
			return
		}
		ok, failed := report.Counts()
		c.JSON(http.StatusOK, gin.H{
			"code":    "ok",
			"message": "success",
			"data": gin.H{
				"id":       report.ID.String(),
				"cycle":    report.Cycle,
				"hard":     report.Hard,
				"ok":       ok,
				"failed":   failed,
				"duration": report.Duration.String(),
			},
		})
		return
	}

	// 页面上的按钮提交表单，处理完回到看板
	fromForm := c.ContentType() == binding.MIMEPOSTForm
	if s.refresher.Running() {
		if fromForm {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		s.refreshError(c, scheduler.ErrCycleInFlight)
		return
	}
	go func() {
		// 请求结束后刷新仍需继续
		if _, err := run(context.Background()); err != nil {
			s.log.Warn("manual refresh not started", "hard", hard, "error", err)
		}
	}()
	if fromForm {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": "accepted", "message": "refresh started"})
}

func (s *Server) refreshError(c *gin.Context, err error) {
	if errors.Is(err, scheduler.ErrCycleInFlight) {
		c.JSON(http.StatusConflict, gin.H{"code": "in_flight", "message": err.Error()})
		return
	}
	s.log.Error("manual refresh failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": "internal server error"})
}

func (s *Server) sourceHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "archive disabled"})
		return
	}
	id := c.Param("id")
	if _, ok := s.board.Source(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "unknown source"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	items, err := s.history.Recent(c.Request.Context(), id, limit)
	if err != nil {
		s.log.Error("load history failed", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}
