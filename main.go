package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/gin-gonic/gin"

	"github.com/robertmaury/upscaler/upscale"
)

type Video struct {
	ID         int64  `json:"id"`
	Path       string `json:"path"`
	OutputPath string `json:"outPath"`
	Done       bool   `json:"done"`
	Retries    int    `json:"retries"`
}

type App struct {
	queue      *Queue
	sqlite     *Sqlite
	poolWorker *PoolWorker
}

func main() {
	// cli arguments
	configPath := flag.String("config_path", "./config.yml", "Path to the config yml file")
	flag.Parse()

	config, err := GetConfig(*configPath)
	if err != nil {
		log.Panic(err)
	}

	SetupLogger(config.LogPath)

	sqlite := NewSqlite(config.DatabasePath)
	videos, err := sqlite.GetVideos()
	if err != nil {
		log.Panic(err)
	}

	hub := NewHub()
	go hub.Run()

	queue := NewQueue(videos, hub)

	// Scale and noise come from the model path markers, config values
	// act as the defaults when the path carries none.
	defaults := upscale.Options{
		DeviceID:   *config.DeviceID,
		Scale:      config.Scale,
		NoiseLevel: *config.NoiseLevel,
		TileSize:   config.TileSize,
		TTA:        config.TTAMode,
	}
	opts := upscale.ResolveModel(config.ModelPath, defaults)
	log.WithFields(StructFields(opts)).Info("Resolved upscaler options")

	registry := upscale.NewRegistry()
	err = registry.Register("realcugan", func(opts upscale.Options) (*upscale.Pipeline, error) {
		external := upscale.NewExternalProcessor(config.RealcuganBinary, config.ProcessFolder, CreateLogger("realcugan"))
		return upscale.NewPipeline(opts, nil, external, &upscale.LogrusReporter{Logger: CreateLogger("pipeline")}), nil
	})
	if err != nil {
		log.Panic(err)
	}

	factory, _ := registry.Lookup("realcugan")
	pipeline, err := factory(opts)
	if err != nil {
		log.Panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var waitGroup sync.WaitGroup
	poolWorker := NewPoolWorker(ctx, &queue, &config, &sqlite, hub, pipeline, &waitGroup)
	go poolWorker.RunDispatcher()

	app := &App{
		queue:      &queue,
		sqlite:     &sqlite,
		poolWorker: &poolWorker,
	}

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		log.Info("Shutting down, waiting for workers to finish their current video")
		cancel()
		waitGroup.Wait()
		os.Exit(0)
	}()

	r := gin.Default()
	r.Use(LoggerMiddleware())
	r.GET("/ping", ping)
	r.GET("/queue", app.listVideoQueue)
	r.POST("/queue", app.addVideoToQueue)
	r.DELETE("/queue/:id", app.delVideoFromQueue)
	r.GET("/workers", app.listWorkers)
	r.GET("/ws", hub.HandleConnections)

	r.Run(fmt.Sprintf("%s:%d", config.BindAddress, config.Port))
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "ping",
	})
}

func (a *App) addVideoToQueue(c *gin.Context) {
	var video Video

	if err := c.ShouldBind(&video); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	if _, err := a.sqlite.InsertVideo(&video); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	log.WithFields(StructFields(video)).Debug()
	a.queue.Enqueue(video)

	c.JSON(http.StatusOK, video)
}

func (a *App) delVideoFromQueue(c *gin.Context) {
	idS := c.Param("id")
	id, err := strconv.ParseInt(idS, 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	log.WithField("id", id).Debug()
	video, found := a.queue.RemoveByID(id)
	if !found {
		c.String(http.StatusNotFound, "video not found")
		return
	}

	if err := a.sqlite.DeleteVideoByID(video.ID); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, video)
}

func (a *App) listVideoQueue(c *gin.Context) {
	c.JSON(http.StatusOK, a.queue.GetVideos())
}

func (a *App) listWorkers(c *gin.Context) {
	c.JSON(http.StatusOK, a.poolWorker.WorkerInfos())
}
