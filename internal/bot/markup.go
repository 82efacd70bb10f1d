package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"dealbot/internal/i18n"
	"dealbot/internal/storage"
)

// Inline keyboards are built with telebot markup directly; the adapter
// passes *tele.ReplyMarkup through transport.SendOptions.ReplyMarkup.

func languageMarkup() *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rm.Inline(rm.Row(
		rm.Data("العربية", "lang_ar"),
		rm.Data("English", "lang_en"),
	))
	return rm
}

func addToCartMarkup(lang string) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rm.Inline(rm.Row(rm.Data(i18n.T(lang, "add_to_cart", nil), "cart_add")))
	return rm
}

func alertsMarkup(list []storage.Alert) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(list))
	for _, a := range list {
		rows = append(rows, rm.Row(rm.Data("🗑 "+a.Keyword, "del_alert_"+strconv.FormatInt(a.ID, 10))))
	}
	rm.Inline(rows...)
	return rm
}

func broadcastConfirmMarkup(lang string) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rm.Inline(rm.Row(
		rm.Data(i18n.T(lang, "broadcast_yes", nil), "bc_yes"),
		rm.Data(i18n.T(lang, "broadcast_no", nil), "bc_no"),
	))
	return rm
}
