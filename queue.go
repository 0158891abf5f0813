package main

import (
	"sync"
)

// Queue is the in-memory view of pending videos. Persistence lives in
// Sqlite, the hub gets a broadcast on every mutation.
type Queue struct {
	videos []Video
	hub    *Hub
	lock   sync.Mutex
}

func NewQueue(videos []Video, hub *Hub) Queue {
	return Queue{
		videos: videos,
		hub:    hub,
	}
}

func (q *Queue) GetVideos() []Video {
	q.lock.Lock()
	defer q.lock.Unlock()

	videos := make([]Video, len(q.videos))
	copy(videos, q.videos)
	return videos
}

func (q *Queue) Enqueue(item Video) {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.videos = append(q.videos, item)
	q.sendUpdate()
}

func (q *Queue) Dequeue() (Video, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.videos) == 0 {
		return Video{}, false
	}

	item := q.videos[0]
	q.videos = q.videos[1:]
	q.sendUpdate()
	return item, true
}

func (q *Queue) RemoveByID(id int64) (Video, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	for i, item := range q.videos {
		if item.ID == id {
			q.videos = append(q.videos[:i], q.videos[i+1:]...)
			q.sendUpdate()
			return item, true
		}
	}

	return Video{}, false
}

// caller must hold the lock
func (q *Queue) sendUpdate() {
	if q.hub == nil {
		return
	}

	videos := make([]Video, len(q.videos))
	copy(videos, q.videos)
	q.hub.Broadcast(WsQueueUpdate{
		WsBaseMessage: WsBaseMessage{Type: "queueUpdate"},
		Videos:        videos,
	})
}
