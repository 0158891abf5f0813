package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSqlite(t *testing.T) Sqlite {
	t.Helper()
	return NewSqlite(filepath.Join(t.TempDir(), "test.db"))
}

func TestSqliteInsertAndGetVideos(t *testing.T) {
	sqlite := testSqlite(t)

	video := Video{Path: "/in.mkv", OutputPath: "/out.mkv"}
	id, err := sqlite.InsertVideo(&video)
	require.NoError(t, err)
	assert.Equal(t, id, video.ID)

	videos, err := sqlite.GetVideos()
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "/in.mkv", videos[0].Path)
	assert.Equal(t, "/out.mkv", videos[0].OutputPath)
	assert.False(t, videos[0].Done)
	assert.Zero(t, videos[0].Retries)
}

func TestSqliteMarkVideoAsDone(t *testing.T) {
	sqlite := testSqlite(t)

	video := Video{Path: "/in.mkv", OutputPath: "/out.mkv"}
	_, err := sqlite.InsertVideo(&video)
	require.NoError(t, err)

	require.NoError(t, sqlite.MarkVideoAsDone(&video))
	assert.True(t, video.Done)

	// done videos are no longer pending
	videos, err := sqlite.GetVideos()
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestSqliteRetries(t *testing.T) {
	sqlite := testSqlite(t)

	video := Video{Path: "/in.mkv", OutputPath: "/out.mkv"}
	_, err := sqlite.InsertVideo(&video)
	require.NoError(t, err)

	retries, err := sqlite.GetVideoRetries(&video)
	require.NoError(t, err)
	assert.Equal(t, 0, retries)

	require.NoError(t, sqlite.UpdateVideoRetries(&video, 2))
	assert.Equal(t, 2, video.Retries)

	retries, err = sqlite.GetVideoRetries(&video)
	require.NoError(t, err)
	assert.Equal(t, 2, retries)
}

func TestSqliteFailVideo(t *testing.T) {
	sqlite := testSqlite(t)

	video := Video{Path: "/in.mkv", OutputPath: "/out.mkv"}
	_, err := sqlite.InsertVideo(&video)
	require.NoError(t, err)

	require.NoError(t, sqlite.FailVideo(&video, "process output", "exit status 1"))

	videos, err := sqlite.GetVideos()
	require.NoError(t, err)
	assert.Empty(t, videos)

	var count int
	err = sqlite.pool.QueryRow(`SELECT COUNT(*) FROM failed_video WHERE video_id = ?`, video.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSqliteDeleteVideoByID(t *testing.T) {
	sqlite := testSqlite(t)

	video := Video{Path: "/in.mkv", OutputPath: "/out.mkv"}
	_, err := sqlite.InsertVideo(&video)
	require.NoError(t, err)

	require.NoError(t, sqlite.DeleteVideoByID(video.ID))

	videos, err := sqlite.GetVideos()
	require.NoError(t, err)
	assert.Empty(t, videos)
}
