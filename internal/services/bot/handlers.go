package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
)

func (s *Service) start(ctx context.Context, ev models.Event) error {
	if _, err := s.repo.GetOrCreateUser(ctx, userFromEvent(ev)); err != nil {
		return err
	}

	member, err := s.channel.IsMember(ctx, ev.SenderID)
	if err != nil {
		return err
	}
	if member {
		return s.messenger.SendText(ctx, ev.SenderID, textAlreadySubscribed)
	}
	return s.messenger.SendMenu(ctx, ev.SenderID, startText(s.settings), s.settings.Tiers.Buttons())
}

func (s *Service) selectTier(ctx context.Context, ev models.Event) error {
	t, _ := s.settings.Tiers.Match(ev.Text)

	if _, err := s.repo.GetOrCreateUser(ctx, userFromEvent(ev)); err != nil {
		return err
	}
	if err := s.selections.SaveSelection(ctx, ev.SenderID, t.Label); err != nil {
		return err
	}
	s.log.Info("tier selected", sl.UserID(ev.SenderID), slog.String("tier", t.Label))

	return s.messenger.SendText(ctx, ev.SenderID, fmt.Sprintf(textTierSelected, t.Label, t.Price))
}

func (s *Service) receipt(ctx context.Context, ev models.Event) error {
	label, found, err := s.selections.Selection(ctx, ev.SenderID)
	if err != nil {
		return err
	}
	t, known := s.settings.Tiers.ByLabel(label)
	if !found || !known {
		return s.messenger.SendText(ctx, ev.SenderID, textSelectTierFirst)
	}

	user, err := s.repo.GetOrCreateUser(ctx, userFromEvent(ev))
	if err != nil {
		return err
	}
	fileURL, err := s.messenger.FileURL(ctx, ev.FileID)
	if err != nil {
		return err
	}

	kind := models.ReceiptPhoto
	if ev.Kind == models.EventDocument {
		kind = models.ReceiptDocument
	}
	r := models.Receipt{
		ID:        s.newID(),
		UserID:    ev.SenderID,
		Tier:      t.Label,
		FileID:    ev.FileID,
		Kind:      kind,
		Status:    models.ReceiptSubmitted,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateReceipt(ctx, r); err != nil {
		return err
	}
	s.metrics.Receipt(string(models.ReceiptSubmitted))
	s.log.Info("receipt submitted",
		sl.UserID(r.UserID), slog.String("receipt_id", r.ID), slog.String("tier", r.Tier))

	admin := s.settings.AdminID
	if err := s.messenger.SendText(ctx, admin, fmt.Sprintf(textNewReceipt, user.FullName, user.ID, t.Label, t.Price)); err != nil {
		return err
	}
	if err := s.messenger.SendReceipt(ctx, admin, r, fileURL); err != nil {
		return err
	}
	if err := s.messenger.SendReviewRequest(ctx, admin, fmt.Sprintf(textReviewHint, r.UserID, r.UserID), r.ID); err != nil {
		return err
	}
	return s.messenger.SendText(ctx, ev.SenderID, textReceiptSent)
}

func (s *Service) approve(ctx context.Context, adminChat int64, t target) error {
	var label string
	if t.receipt != nil {
		if t.receipt.Status != models.ReceiptSubmitted {
			return s.messenger.SendText(ctx, adminChat, textAlreadyReviewed)
		}
		label = t.receipt.Tier
	} else {
		selected, found, err := s.selections.Selection(ctx, t.userID)
		if err != nil {
			return err
		}
		if !found {
			return s.messenger.SendText(ctx, adminChat, textUserNotFound)
		}
		label = selected
	}
	tr, ok := s.settings.Tiers.ByLabel(label)
	if !ok {
		return s.messenger.SendText(ctx, adminChat, textUserNotFound)
	}

	now := s.now().UTC()
	if _, err := s.repo.GetOrCreateUser(ctx, models.User{ID: t.userID}); err != nil {
		return err
	}
	sub := models.Subscription{
		UserID:     t.userID,
		Tier:       tr.Label,
		ExpireDate: tr.ExpiresAt(now),
		CreatedAt:  now,
	}
	if err := s.repo.AddSubscription(ctx, sub); err != nil {
		return err
	}
	link, err := s.channel.Grant(ctx, t.userID)
	if err != nil {
		return err
	}

	// квитанция закрывается последней: при сбое выше она остаётся submitted
	// и подтверждение можно повторить.
	if t.receipt != nil {
		n, err := s.repo.ReviewReceipt(ctx, t.receipt.ID, models.ReceiptApproved, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return s.messenger.SendText(ctx, adminChat, textAlreadyReviewed)
		}
		s.metrics.Receipt(string(models.ReceiptApproved))
	}

	if err := s.selections.ClearSelection(ctx, t.userID); err != nil {
		s.log.Warn("failed to clear selection", sl.UserID(t.userID), sl.Err(err))
	}
	s.log.Info("subscription confirmed",
		sl.UserID(t.userID), slog.String("tier", tr.Label), slog.Time("expire_date", sub.ExpireDate))

	if err := s.messenger.SendText(ctx, adminChat,
		fmt.Sprintf(textConfirmedAdmin, t.userID, tr.Label, formatDate(sub.ExpireDate))); err != nil {
		return err
	}
	return s.messenger.SendText(ctx, t.userID, fmt.Sprintf(textConfirmedUser, link, formatDate(sub.ExpireDate)))
}

func (s *Service) reject(ctx context.Context, adminChat int64, t target) error {
	if t.receipt != nil {
		if t.receipt.Status != models.ReceiptSubmitted {
			return s.messenger.SendText(ctx, adminChat, textAlreadyReviewed)
		}
		n, err := s.repo.ReviewReceipt(ctx, t.receipt.ID, models.ReceiptRejected, s.now().UTC())
		if err != nil {
			return err
		}
		if n == 0 {
			return s.messenger.SendText(ctx, adminChat, textAlreadyReviewed)
		}
		s.metrics.Receipt(string(models.ReceiptRejected))
	}
	s.log.Info("receipt rejected", sl.UserID(t.userID))

	if err := s.messenger.SendText(ctx, t.userID, textRejectedUser); err != nil {
		return err
	}
	return s.messenger.SendText(ctx, adminChat, fmt.Sprintf(textRejectedAdmin, t.userID))
}

func (s *Service) remove(ctx context.Context, adminChat int64, args string) error {
	arg := firstArg(args)
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return s.messenger.SendText(ctx, adminChat, usageText(RouteRemove))
	}

	n, err := s.repo.RemoveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.messenger.SendText(ctx, adminChat, textUserNotFound)
	}
	if err := s.channel.Revoke(ctx, userID); err != nil {
		return err
	}
	s.log.Info("subscription removed", sl.UserID(userID))

	if err := s.messenger.SendText(ctx, adminChat, fmt.Sprintf(textRemovedAdmin, userID)); err != nil {
		return err
	}
	return s.messenger.SendText(ctx, userID, textRemovedUser)
}

func (s *Service) listUsers(ctx context.Context, adminChat int64) error {
	subs, err := s.repo.ListSubscribers(ctx)
	if err != nil {
		return err
	}
	return s.messenger.SendText(ctx, adminChat, subscribersText(subs))
}

func userFromEvent(ev models.Event) models.User {
	return models.User{ID: ev.SenderID, FullName: ev.FullName, Username: ev.Username}
}
