package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"visaflow/internal/logging"
)

// AttachToPopup switches the session to the most recently opened page target
// if the submission spawned one (the form opens its print view in a new
// window). Returns true if a switch happened. RestoreTarget undoes it.
func (s *Session) AttachToPopup(ctx context.Context) (bool, error) {
	logger := logging.New("browser")

	current := chromedp.FromContext(s.ctx).Target
	infos, err := chromedp.Targets(s.ctx)
	if err != nil {
		return false, fmt.Errorf("list targets: %w", err)
	}

	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		if current != nil && info.TargetID == current.TargetID {
			continue
		}
		popupCtx, popupCancel := chromedp.NewContext(s.ctx, chromedp.WithTargetID(info.TargetID))
		// Attach eagerly so a dead target fails here, not on first use.
		if err := chromedp.Run(popupCtx); err != nil {
			popupCancel()
			continue
		}
		logger.Info("attached to popup target", "target_id", info.TargetID, "url", info.URL)
		s.origCtx, s.origCancel = s.ctx, s.cancel
		s.ctx, s.cancel = popupCtx, popupCancel
		return true, nil
	}
	return false, nil
}

// RestoreTarget reattaches the session to its original tab after a popup
// capture. Safe to call when no popup switch happened.
func (s *Session) RestoreTarget() {
	if s.origCtx == nil {
		return
	}
	s.cancel()
	s.ctx, s.cancel = s.origCtx, s.origCancel
	s.origCtx, s.origCancel = nil, nil
}
