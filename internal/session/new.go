package session

import (
	"context"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Roenbaeck/hls-relay/internal/config"
	"github.com/Roenbaeck/hls-relay/internal/playlist"
	"github.com/Roenbaeck/hls-relay/internal/segstore"
)

// New constructs a Session rooted at dir (already computed by the registry
// as <baseDir>/<sessionID>, per spec.md §3). The playlist file is not
// created until the first initialization segment is admitted.
func New(
	streamKey, sessionID, dir string,
	cfg config.Config,
	uploaderFactory UploaderFactory,
	onFinalize func(*Session),
	onEvent func(streamKey, sessionID string, ev Event),
) (*Session, error) {
	store, err := segstore.New(dir)
	if err != nil {
		return nil, err
	}
	writer := playlist.New(filepath.Join(dir, "playlist.m3u8"))
	bgCtx, bgCancel := context.WithCancel(context.Background())

	now := time.Now()
	return &Session{
		streamKey:               streamKey,
		sessionID:               sessionID,
		dir:                     dir,
		store:                   store,
		writer:                  writer,
		cfg:                     cfg,
		uploaderFactory:         uploaderFactory,
		onFinalize:              onFinalize,
		onEvent:                 onEvent,
		pending:                 make(map[int]pendingSegment),
		lastWrittenSequence:     -1,
		gapWaitSequence:         -1,
		lastUploadTime:          now,
		lastPlaylistAdvanceTime: now,
		createdAt:               now,
		bgCtx:                   bgCtx,
		bgCancel:                bgCancel,
		bg:                      &errgroup.Group{},
	}, nil
}
