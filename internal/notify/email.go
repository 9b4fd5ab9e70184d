package notify

import (
	"bytes"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

var methodLabels = map[string]string{
	"cod":           "الدفع عند الاستلام",
	"vodafone_cash": "فودافون كاش",
	"instapay":      "انستاباي",
	"partial":       "دفع جزئي (30%)",
}

func methodLabel(method string) string {
	if l, ok := methodLabels[method]; ok {
		return l
	}
	return method
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " ج.م"
}

func moneyPtr(d *decimal.Decimal) string {
	if d == nil {
		return money(decimal.Zero)
	}
	return money(*d)
}

var cairo = func() *time.Location {
	loc, err := time.LoadLocation("Africa/Cairo")
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}()

func orderTime(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.In(cairo).Format("2006/01/02 15:04")
}

var emailTemplate = template.Must(template.New("order").Funcs(template.FuncMap{
	"method":    methodLabel,
	"money":     money,
	"moneyPtr":  moneyPtr,
	"orderTime": orderTime,
}).Parse(`<!DOCTYPE html>
<html dir="rtl" lang="ar">
<head>
<meta charset="UTF-8">
<style>
  body { font-family: 'Segoe UI', Tahoma, Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background: #667eea; color: white; padding: 20px; text-align: center; border-radius: 10px 10px 0 0; }
  .content { background: #f9f9f9; padding: 20px; border: 1px solid #ddd; }
  .section { background: white; padding: 15px; margin: 15px 0; border-radius: 8px; }
  .section h3 { margin-top: 0; color: #667eea; border-bottom: 2px solid #667eea; padding-bottom: 10px; }
  table { width: 100%; border-collapse: collapse; }
  th { background: #667eea; color: white; padding: 12px; text-align: right; }
  td { padding: 10px; border-bottom: 1px solid #eee; }
  .total { font-size: 1.3em; color: #667eea; font-weight: bold; }
  .footer { text-align: center; padding: 20px; color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>🛒 طلب جديد!</h1>
    <p>تم استلام طلب جديد من متجرك</p>
  </div>
  <div class="content">
    <div class="section">
      <h3>📋 معلومات العميل</h3>
      <p><strong>الاسم:</strong> {{.P.Customer.Name}}</p>
      <p><strong>رقم الهاتف:</strong> {{.P.Customer.Phone}}</p>
      {{- if .P.OrderID}}
      <p><strong>رقم الطلب:</strong> {{.P.OrderID}}</p>
      {{- end}}
    </div>
    <div class="section">
      <h3>📍 عنوان التوصيل</h3>
      <p><strong>المحافظة:</strong> {{.P.DeliveryAddress.Governorate}}</p>
      <p><strong>المدينة:</strong> {{.P.DeliveryAddress.City}}</p>
      <p><strong>العنوان بالتفصيل:</strong> {{.P.DeliveryAddress.FullAddress}}</p>
    </div>
    <div class="section">
      <h3>💳 معلومات الدفع</h3>
      <p><strong>طريقة الدفع:</strong> {{method .P.Payment.Method}}</p>
      {{- if eq .P.Payment.Method "partial"}}
      <p><strong>المبلغ المدفوع مقدماً (30%):</strong> {{moneyPtr .P.Payment.PrepaidAmount}} عبر {{method .P.Payment.PrepaidVia}}</p>
      <p><strong>المبلغ المتبقي عند الاستلام:</strong> {{moneyPtr .P.Payment.RemainingAmount}}</p>
      {{- end}}
      {{- if .TransferImageURL}}
      <div style="margin-top: 15px;">
        <p><strong>صورة إيصال التحويل:</strong></p>
        <div style="background: #e2e3e5; color: #383d41; padding: 10px; border-radius: 8px;">
          ℹ️ يرجى مراجعة الصورة يدوياً قبل تأكيد الطلب
        </div>
        <a href="{{.TransferImageURL}}" target="_blank">
          <img src="{{.TransferImageURL}}" alt="إيصال التحويل" style="max-width: 300px; max-height: 300px; border: 1px solid #ddd; border-radius: 8px;">
        </a>
      </div>
      {{- end}}
    </div>
    <div class="section">
      <h3>📦 المنتجات المطلوبة</h3>
      <table>
        <thead>
          <tr><th>المنتج</th><th>الكمية</th><th>السعر</th><th>الإجمالي</th></tr>
        </thead>
        <tbody>
        {{- range .P.Items}}
          <tr>
            <td>{{.Name}}</td>
            <td style="text-align: center;">{{.Quantity}}</td>
            <td>{{if .HasDiscount}}<span style="text-decoration: line-through; color: #999;">{{money .Price}}</span> → {{money .UnitPrice}}{{else}}{{money .Price}}{{end}}</td>
            <td>{{money .LineTotal}}</td>
          </tr>
        {{- end}}
        </tbody>
      </table>
      <div style="margin-top: 15px; padding: 15px; background: #f0f0f0; border-radius: 8px;">
        {{- if .P.Subtotal}}
        <p>المجموع الفرعي: {{moneyPtr .P.Subtotal}}</p>
        {{- end}}
        {{- if .P.DeliveryFee}}
        <p>🚚 التوصيل: {{if .P.IsFreeDelivery}}<span style="color: #22c55e; font-weight: bold;">مجاني 🎉</span>{{else}}{{moneyPtr .P.DeliveryFee}}{{end}}</p>
        {{- end}}
        <p class="total">الإجمالي الكلي: {{money .P.Total}}</p>
      </div>
    </div>
    <div class="section">
      <h3>🕐 وقت الطلب</h3>
      <p>{{orderTime .P.OrderDate}}</p>
    </div>
  </div>
  <div class="footer">
    <p>تم إرسال هذا الإيميل تلقائياً من نظام المتجر</p>
  </div>
</div>
</body>
</html>
`))

// RenderEmail renders the store notification. Every payload field is
// HTML-escaped by the template engine.
func RenderEmail(p *Payload, transferImageURL string) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		P                *Payload
		TransferImageURL string
	}{p, transferImageURL})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Subject is the email subject line.
func Subject(p *Payload) string {
	return "🛒 طلب جديد من " + p.Customer.Name
}
