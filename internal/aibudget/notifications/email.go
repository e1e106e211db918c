// Отправка email-уведомлений через SMTP (gomail). Используется для
// уведомления авторов расходов о результате согласования.
package notifications

import (
	"fmt"
	"log/slog"

	"github.com/aisa-it/aibudget/internal/aibudget/config"
	"github.com/aisa-it/aibudget/internal/aibudget/dao"
	"github.com/aisa-it/aibudget/internal/aibudget/types"
	"gopkg.in/gomail.v2"
)

type EmailService struct {
	cfg     *config.Config
	queue   chan *gomail.Message
	done    chan struct{}
	enabled bool
}

func NewEmailService(cfg *config.Config) *EmailService {
	es := &EmailService{
		cfg:     cfg,
		queue:   make(chan *gomail.Message, 100),
		done:    make(chan struct{}),
		enabled: cfg.EmailHost != "",
	}
	if !es.enabled {
		slog.Info("Email notifications disabled: EMAIL_HOST not set")
		return es
	}

	go es.worker()
	return es
}

func (es *EmailService) worker() {
	dialer := gomail.NewDialer(es.cfg.EmailHost, es.cfg.EmailPort, es.cfg.EmailUser, es.cfg.EmailPassword)
	for msg := range es.queue {
		if err := dialer.DialAndSend(msg); err != nil {
			slog.Error("Send email", "err", err)
		}
	}
	close(es.done)
}

func (es *EmailService) Stop() {
	if !es.enabled {
		return
	}
	close(es.queue)
	<-es.done
}

// ExpenseResolved ставит в очередь письмо автору расхода о решении по нему.
func (es *EmailService) ExpenseResolved(expense *dao.Expense) {
	if !es.enabled || expense.SubmittedBy == nil {
		return
	}

	verdict := "одобрен"
	if expense.PaymentStatus == types.ExpenseRejected {
		verdict = "отклонен"
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", es.cfg.EmailFrom)
	msg.SetHeader("To", expense.SubmittedBy.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Расход на сумму %.2f %s", expense.Amount, verdict))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Ваш расход «%s» на сумму %.2f %s.\n\n%s",
		expense.Description, expense.Amount, verdict, es.cfg.WebURLRaw))

	select {
	case es.queue <- msg:
	default:
		slog.Warn("Email queue full, dropping notification", "to", expense.SubmittedBy.Email)
	}
}
