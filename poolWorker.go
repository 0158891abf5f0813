package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robertmaury/upscaler/upscale"
)

var retryLimit int = 5

type PoolWorker struct {
	ctx       context.Context
	queue     *Queue
	config    *Config
	sqlite    *Sqlite
	hub       *Hub
	pipeline  *upscale.Pipeline
	waitGroup *sync.WaitGroup
	workers   []*Worker
}

func NewPoolWorker(ctx context.Context, queue *Queue, config *Config, sqlite *Sqlite,
	hub *Hub, pipeline *upscale.Pipeline, waitGroup *sync.WaitGroup) PoolWorker {
	return PoolWorker{
		ctx:       ctx,
		queue:     queue,
		config:    config,
		sqlite:    sqlite,
		hub:       hub,
		pipeline:  pipeline,
		waitGroup: waitGroup,
	}
}

func (p *PoolWorker) RunDispatcher() {
	workChannel := make(chan Video, p.config.Workers)

	for i := 0; i < p.config.Workers; i++ {
		worker := NewWorker(i, CreateLogger(fmt.Sprintf("worker_%d", i)), p)
		p.workers = append(p.workers, worker)
		go worker.start(workChannel)
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
			video, ok := p.queue.Dequeue()
			if ok {
				workChannel <- video
			} else {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (p *PoolWorker) WorkerInfos() []WorkerInfo {
	infos := make([]WorkerInfo, 0, len(p.workers))
	for _, worker := range p.workers {
		infos = append(infos, worker.Info())
	}

	return infos
}
