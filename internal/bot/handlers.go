package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dealbot/internal/alerts"
	"dealbot/internal/broadcast"
	"dealbot/internal/i18n"
	"dealbot/internal/pricing"
	"dealbot/internal/transport"
	"dealbot/pkg/logx"
)

var productLinkRe = regexp.MustCompile(`https?://(www\.)?(aliexpress|ae\.aliexpress)\.com/\S+`)

func (s *Service) handleMessage(ctx context.Context, m *transport.Message) {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}

	cmd, args := splitCommand(text)
	switch cmd {
	case "/start":
		s.cmdStart(ctx, m)
	case "/help":
		s.reply(ctx, m.ChatID, i18n.T(s.userLang(ctx, m.ChatID), "help", nil), nil)
	case "/language":
		s.cmdLanguage(ctx, m)
	case "/cart":
		s.cmdCart(ctx, m)
	case "/alert":
		s.cmdAlert(ctx, m, args)
	case "/my_alerts":
		s.cmdMyAlerts(ctx, m)
	case "/stats":
		s.cmdStats(ctx, m)
	case "/broadcast":
		s.cmdBroadcast(ctx, m, args)
	default:
		if link := productLinkRe.FindString(text); link != "" {
			s.handleProductLink(ctx, m, link)
			return
		}
		// Anything else in private chat gets the link hint.
		if !m.IsGroup {
			s.reply(ctx, m.ChatID, i18n.T(s.userLang(ctx, m.ChatID), "send_link", nil), nil)
		}
	}
}

func splitCommand(text string) (cmd, args string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, args, _ = strings.Cut(text, " ")
	// strip bot-name suffix ("/start@dealbot")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd, strings.TrimSpace(args)
}

func (s *Service) cmdStart(ctx context.Context, m *transport.Message) {
	if err := s.store.UpsertUser(ctx, m.ChatID, m.FromUsername); err != nil {
		s.log.Error("user upsert failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
	}
	if err := s.store.SetSubscribed(ctx, m.ChatID, true); err != nil {
		s.log.Warn("subscribe failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
	}
	s.reply(ctx, m.ChatID, i18n.T(s.userLang(ctx, m.ChatID), "welcome", nil), nil)
}

func (s *Service) cmdLanguage(ctx context.Context, m *transport.Message) {
	lang := s.userLang(ctx, m.ChatID)
	s.reply(ctx, m.ChatID, i18n.T(lang, "choose_language", nil), &transport.SendOptions{
		DisablePreview: true,
		ReplyMarkup:    languageMarkup(),
	})
}

func (s *Service) cmdCart(ctx context.Context, m *transport.Message) {
	lang := s.userLang(ctx, m.ChatID)
	items, err := s.carts.Items(ctx, m.ChatID)
	if err != nil {
		s.replyError(ctx, m.ChatID, lang, err)
		return
	}
	if len(items) == 0 {
		s.reply(ctx, m.ChatID, i18n.T(lang, "cart_empty", nil), nil)
		return
	}
	var b strings.Builder
	b.WriteString(i18n.T(lang, "cart_header", nil))
	b.WriteString("\n")
	for _, it := range items {
		delta := it.CurrentPrice - it.OriginalPrice
		fmt.Fprintf(&b, "\n• %s\n  %.2f (%+.2f)\n  %s\n", it.ProductTitle, it.CurrentPrice, delta, it.ProductURL)
	}
	s.reply(ctx, m.ChatID, b.String(), nil)
}

func (s *Service) cmdAlert(ctx context.Context, m *transport.Message, args string) {
	lang := s.userLang(ctx, m.ChatID)
	if args == "" {
		s.reply(ctx, m.ChatID, i18n.T(lang, "alert_usage", nil), nil)
		return
	}
	if _, err := s.alerts.Create(ctx, m.ChatID, args); err != nil {
		if err == alerts.ErrEmptyKeyword {
			s.reply(ctx, m.ChatID, i18n.T(lang, "alert_usage", nil), nil)
			return
		}
		s.replyError(ctx, m.ChatID, lang, err)
		return
	}
	s.reply(ctx, m.ChatID, i18n.T(lang, "alert_set", map[string]string{"keyword": args}), nil)
}

func (s *Service) cmdMyAlerts(ctx context.Context, m *transport.Message) {
	lang := s.userLang(ctx, m.ChatID)
	list, err := s.alerts.List(ctx, m.ChatID)
	if err != nil {
		s.replyError(ctx, m.ChatID, lang, err)
		return
	}
	if len(list) == 0 {
		s.reply(ctx, m.ChatID, i18n.T(lang, "alerts_empty", nil), nil)
		return
	}
	var b strings.Builder
	b.WriteString(i18n.T(lang, "alerts_header", nil))
	b.WriteString("\n")
	for _, a := range list {
		fmt.Fprintf(&b, "\n• %s", a.Keyword)
	}
	s.reply(ctx, m.ChatID, b.String(), &transport.SendOptions{
		DisablePreview: true,
		ReplyMarkup:    alertsMarkup(list),
	})
}

func (s *Service) cmdStats(ctx context.Context, m *transport.Message) {
	lang := s.userLang(ctx, m.ChatID)
	if !s.isAdmin(m.FromID) {
		s.reply(ctx, m.ChatID, i18n.T(lang, "not_admin", nil), nil)
		return
	}
	st, err := s.store.GetStats(ctx)
	if err != nil {
		s.replyError(ctx, m.ChatID, lang, err)
		return
	}
	s.reply(ctx, m.ChatID, i18n.T(lang, "stats", map[string]string{
		"users":      strconv.Itoa(st.Users),
		"subscribed": strconv.Itoa(st.Subscribed),
		"cart":       strconv.Itoa(st.CartItems),
		"alerts":     strconv.Itoa(st.Alerts),
	}), nil)
}

func (s *Service) cmdBroadcast(ctx context.Context, m *transport.Message, args string) {
	lang := s.userLang(ctx, m.ChatID)
	if !s.isAdmin(m.FromID) {
		s.reply(ctx, m.ChatID, i18n.T(lang, "not_admin", nil), nil)
		return
	}
	if strings.TrimSpace(args) == "" {
		s.reply(ctx, m.ChatID, i18n.T(lang, "broadcast_usage", nil), nil)
		return
	}

	s.mu.Lock()
	s.pendingBroadcasts[m.ChatID] = args
	s.mu.Unlock()

	s.reply(ctx, m.ChatID, i18n.T(lang, "broadcast_confirm", nil)+"\n\n"+args, &transport.SendOptions{
		DisablePreview: true,
		ReplyMarkup:    broadcastConfirmMarkup(lang),
	})
}

func (s *Service) handleProductLink(ctx context.Context, m *transport.Message, link string) {
	lang := s.userLang(ctx, m.ChatID)
	s.reply(ctx, m.ChatID, i18n.T(lang, "processing", nil), nil)

	aff, err := s.aff.ConvertLink(ctx, link, m.FromID)
	if err != nil {
		s.replyError(ctx, m.ChatID, lang, err)
		return
	}
	product, perr := s.aff.GetProductDetails(ctx, link)

	var b strings.Builder
	b.WriteString(i18n.T(lang, "product_info", nil))
	b.WriteString("\n")
	if perr == nil && product.Price > 0 {
		quote := pricing.QuoteFor(product.Price)
		fmt.Fprintf(&b, "\n%s", product.Title)
		fmt.Fprintf(&b, "\n%s: %.2f", i18n.T(lang, "original_price", nil), quote.OriginalPrice)
		fmt.Fprintf(&b, "\n%s: %.2f", i18n.T(lang, "final_price", nil), quote.FinalPrice)
		fmt.Fprintf(&b, "\n%s: %.2f (%.1f%%)", i18n.T(lang, "savings", nil), quote.Savings, quote.SavingsPercent)
		fmt.Fprintf(&b, "\n\n%s: %d", i18n.T(lang, "coupons", nil), len(quote.Coupons))
	}
	fmt.Fprintf(&b, "\n\n%s:\n%s", i18n.T(lang, "affiliate_link", nil), aff.AffiliateURL)

	s.mu.Lock()
	s.lastProduct[m.ChatID] = link
	s.mu.Unlock()

	s.reply(ctx, m.ChatID, b.String(), &transport.SendOptions{
		ReplyMarkup: addToCartMarkup(lang),
	})

	if perr == nil && product.Title != "" {
		s.notifyAlertMatches(ctx, m.ChatID, product.Title, aff.AffiliateURL)
	}
}

// notifyAlertMatches tells every user whose keyword alert matches the
// product title about the deal. The chat that triggered the lookup is
// skipped, and a user with several matching alerts hears about it once.
func (s *Service) notifyAlertMatches(ctx context.Context, fromChatID int64, title, link string) {
	matched, err := s.alerts.MatchDeal(ctx, title)
	if err != nil {
		s.log.Warn("alert matching failed", logx.Err(err))
		return
	}
	notified := map[int64]bool{fromChatID: true}
	for _, a := range matched {
		if notified[a.ChatID] {
			continue
		}
		notified[a.ChatID] = true
		lang := s.userLang(ctx, a.ChatID)
		msg := i18n.T(lang, "deal_alert", map[string]string{
			"keyword": a.Keyword,
			"title":   title,
			"link":    link,
		})
		if _, err := s.adapter.SendText(ctx, transport.ChatTarget{ChatID: a.ChatID}, msg, &transport.SendOptions{DisablePreview: true}); err != nil {
			s.log.Warn("alert notification failed", logx.Int64("chat_id", a.ChatID), logx.Err(err))
		}
	}
}

// ---- callbacks ----

func (s *Service) handleCallback(ctx context.Context, cb *transport.Callback) {
	lang := s.userLang(ctx, cb.ChatID)
	data := strings.TrimSpace(cb.Data)

	switch {
	case strings.HasPrefix(data, "lang_"):
		s.cbLanguage(ctx, cb, strings.TrimPrefix(data, "lang_"))
	case data == "cart_add":
		s.cbAddToCart(ctx, cb, lang)
	case strings.HasPrefix(data, "del_alert_"):
		s.cbDeleteAlert(ctx, cb, lang, strings.TrimPrefix(data, "del_alert_"))
	case data == "bc_yes":
		s.cbBroadcastConfirm(ctx, cb, lang)
	case data == "bc_no":
		s.mu.Lock()
		delete(s.pendingBroadcasts, cb.ChatID)
		s.mu.Unlock()
		_ = s.adapter.AnswerCallback(ctx, cb.ID, i18n.T(lang, "broadcast_cancel", nil))
	default:
		_ = s.adapter.AnswerCallback(ctx, cb.ID, "")
	}
}

func (s *Service) cbLanguage(ctx context.Context, cb *transport.Callback, lang string) {
	if !i18n.Supported(lang) {
		_ = s.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}
	if err := s.store.SetLanguage(ctx, cb.ChatID, lang); err != nil {
		s.log.Warn("language update failed", logx.Int64("chat_id", cb.ChatID), logx.Err(err))
	}
	_ = s.adapter.AnswerCallback(ctx, cb.ID, i18n.T(lang, "language_set", nil))
}

func (s *Service) cbAddToCart(ctx context.Context, cb *transport.Callback, lang string) {
	s.mu.Lock()
	link := s.lastProduct[cb.ChatID]
	s.mu.Unlock()
	if link == "" {
		_ = s.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}
	if _, err := s.carts.AddProduct(ctx, cb.ChatID, link); err != nil {
		s.log.Warn("add to cart failed", logx.Int64("chat_id", cb.ChatID), logx.Err(err))
		_ = s.adapter.AnswerCallback(ctx, cb.ID, i18n.T(lang, "error", map[string]string{"message": "cart"}))
		return
	}
	_ = s.adapter.AnswerCallback(ctx, cb.ID, i18n.T(lang, "added_to_cart", nil))
}

func (s *Service) cbDeleteAlert(ctx context.Context, cb *transport.Callback, lang, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		_ = s.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}
	if err := s.alerts.Deactivate(ctx, id); err != nil {
		s.log.Warn("alert delete failed", logx.Int64("alert", id), logx.Err(err))
		_ = s.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}
	_ = s.adapter.AnswerCallback(ctx, cb.ID, i18n.T(lang, "alert_deleted", nil))
}

func (s *Service) cbBroadcastConfirm(ctx context.Context, cb *transport.Callback, lang string) {
	if !s.isAdmin(cb.FromID) {
		_ = s.adapter.AnswerCallback(ctx, cb.ID, i18n.T(lang, "not_admin", nil))
		return
	}
	s.mu.Lock()
	msg := s.pendingBroadcasts[cb.ChatID]
	delete(s.pendingBroadcasts, cb.ChatID)
	s.mu.Unlock()
	if strings.TrimSpace(msg) == "" {
		_ = s.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}
	_ = s.adapter.AnswerCallback(ctx, cb.ID, "")

	// A large subscriber list drains for minutes at the configured rate;
	// keep the update loop free while it runs.
	go func() {
		res, err := s.bcast.Send(ctx, broadcast.Request{
			Message:        msg,
			ParseMode:      "Markdown",
			DisablePreview: false,
		})
		if err != nil {
			s.replyError(ctx, cb.ChatID, lang, err)
			return
		}
		s.reply(ctx, cb.ChatID, broadcast.FormatResult(res, lang), nil)
	}()
}

func (s *Service) replyError(ctx context.Context, chatID int64, lang string, err error) {
	s.log.Error("command failed", logx.Int64("chat_id", chatID), logx.Err(err))
	s.reply(ctx, chatID, i18n.T(lang, "error", map[string]string{"message": err.Error()}), nil)
}
