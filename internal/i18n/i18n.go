// Package i18n holds the bot's message catalogs (Arabic and English)
// with simple {param} substitution.
package i18n

import "strings"

// DefaultLang is used when a user's language is unknown or a catalog
// is missing.
const DefaultLang = "ar"

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}

// T resolves key in lang's catalog, substituting {name} placeholders
// from args. Falls back to the default catalog, then to the key itself.
func T(lang, key string, args map[string]string) string {
	cat, ok := catalogs[lang]
	if !ok {
		cat = catalogs[DefaultLang]
	}
	text, ok := cat[key]
	if !ok {
		text, ok = catalogs[DefaultLang][key]
		if !ok {
			return key
		}
	}
	for k, v := range args {
		text = strings.ReplaceAll(text, "{"+k+"}", v)
	}
	return text
}

var catalogs = map[string]map[string]string{
	"ar": {
		"welcome":           "🎉 مرحباً بك في بوت العروض والخصومات!\n\nاختر من القائمة أدناه:",
		"help":              "📖 الأوامر المتاحة:\n/start — البدء\n/language — تغيير اللغة\n/cart — عرض السلة\n/alert — تفعيل تنبيه\n/my_alerts — تنبيهاتي\n/help — المساعدة",
		"choose_language":   "🌐 اختر اللغة:",
		"language_set":      "✅ تم تغيير اللغة",
		"send_link":         "📎 أرسل رابط المنتج لتحويله لرابط أفلييت:",
		"processing":        "⏳ جاري المعالجة...",
		"product_info":      "📦 معلومات المنتج",
		"original_price":    "السعر الأصلي",
		"final_price":       "السعر النهائي",
		"savings":           "التوفير",
		"affiliate_link":    "🔗 رابط الأفلييت",
		"coupons":           "🎫 الكوبونات المتاحة",
		"add_to_cart":       "🛒 أضف إلى السلة",
		"added_to_cart":     "✅ تمت إضافة المنتج إلى السلة",
		"cart_empty":        "السلة فارغة",
		"cart_header":       "📦 سلتك:",
		"alert_usage":       "الاستخدام: /alert <كلمة مفتاحية>",
		"alert_set":         "✅ تم تفعيل التنبيه للكلمة: {keyword}",
		"alert_deleted":     "🗑 تم حذف التنبيه",
		"alerts_empty":      "لا توجد تنبيهات مفعلة",
		"alerts_header":     "🔔 تنبيهاتك المفعلة:",
		"deal_alert":        "🔔 عرض يطابق تنبيهك \"{keyword}\"!\n{title}\n{link}",
		"price_drop":        "📉 انخفض سعر {title}!\nمن {old} إلى {new} ({pct}%)",
		"price_rise":        "📈 ارتفع سعر {title}\nمن {old} إلى {new} ({pct}%)",
		"not_admin":         "⛔ هذا الأمر متاح للمشرفين فقط",
		"broadcast_usage":   "الاستخدام: /broadcast <الرسالة>",
		"broadcast_confirm": "📢 إرسال هذا البث لجميع المشتركين؟",
		"broadcast_yes":     "✅ إرسال",
		"broadcast_no":      "❌ إلغاء",
		"broadcast_cancel":  "تم إلغاء البث",
		"error":             "❌ حدث خطأ: {message}",
		"stats":             "📊 الإحصائيات\nالمستخدمون: {users}\nالمشتركون: {subscribed}\nعناصر السلة: {cart}\nالتنبيهات: {alerts}",

		"bc_header":    "📊 نتيجة البث",
		"bc_success":   "✅ نجح: {count} ({rate}%)",
		"bc_failed":    "❌ فشل: {count}",
		"bc_total":     "📮 الإجمالي: {count}",
		"bc_duration":  "⏱ المدة: {seconds}ث",
		"bc_err_title": "تفاصيل الأخطاء:",

		"err_permanently_blocked": "حظر البوت",
		"err_rate_limited":        "تجاوز الحد",
		"err_bad_request":         "طلب خاطئ",
		"err_server_error":        "خطأ في الخادم",
		"err_network_error":       "خطأ في الشبكة",
		"err_unknown_error":       "خطأ غير معروف",
	},
	"en": {
		"welcome":           "🎉 Welcome to Affiliate Offers Bot!\n\nChoose from the menu below:",
		"help":              "📖 Available commands:\n/start — get started\n/language — change language\n/cart — view cart\n/alert — set an alert\n/my_alerts — my alerts\n/help — help",
		"choose_language":   "🌐 Choose a language:",
		"language_set":      "✅ Language updated",
		"send_link":         "📎 Send product link to convert to affiliate link:",
		"processing":        "⏳ Processing...",
		"product_info":      "📦 Product Information",
		"original_price":    "Original Price",
		"final_price":       "Final Price",
		"savings":           "Savings",
		"affiliate_link":    "🔗 Affiliate Link",
		"coupons":           "🎫 Available Coupons",
		"add_to_cart":       "🛒 Add to Cart",
		"added_to_cart":     "✅ Product added to cart",
		"cart_empty":        "Cart is empty",
		"cart_header":       "📦 Your cart:",
		"alert_usage":       "Usage: /alert <keyword>",
		"alert_set":         "✅ Alert set for keyword: {keyword}",
		"alert_deleted":     "🗑 Alert deleted",
		"alerts_empty":      "No active alerts",
		"alerts_header":     "🔔 Your active alerts:",
		"deal_alert":        "🔔 A deal matches your alert \"{keyword}\"!\n{title}\n{link}",
		"price_drop":        "📉 Price dropped for {title}!\nFrom {old} to {new} ({pct}%)",
		"price_rise":        "📈 Price went up for {title}\nFrom {old} to {new} ({pct}%)",
		"not_admin":         "⛔ This command is for admins only",
		"broadcast_usage":   "Usage: /broadcast <message>",
		"broadcast_confirm": "📢 Send this broadcast to all subscribers?",
		"broadcast_yes":     "✅ Send",
		"broadcast_no":      "❌ Cancel",
		"broadcast_cancel":  "Broadcast cancelled",
		"error":             "❌ Error: {message}",
		"stats":             "📊 Statistics\nUsers: {users}\nSubscribed: {subscribed}\nCart items: {cart}\nAlerts: {alerts}",

		"bc_header":    "📊 Broadcast Results",
		"bc_success":   "✅ Success: {count} ({rate}%)",
		"bc_failed":    "❌ Failed: {count}",
		"bc_total":     "📮 Total: {count}",
		"bc_duration":  "⏱ Duration: {seconds}s",
		"bc_err_title": "Error Details:",

		"err_permanently_blocked": "Blocked Bot",
		"err_rate_limited":        "Rate Limit",
		"err_bad_request":         "Bad Request",
		"err_server_error":        "Server Error",
		"err_network_error":       "Network Error",
		"err_unknown_error":       "Unknown Error",
	},
}
