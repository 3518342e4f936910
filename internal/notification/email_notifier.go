package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/config"
	"github.com/stanstork/taller-api/internal/models"
)

// Directory resolves the mailbox of a notification's owner.
type Directory interface {
	GetByID(ctx context.Context, id string) (models.Usuario, error)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails a copy of alerts and urgent notifications to their owner.
type EmailNotifier struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	directory Directory
	send      sendFunc
	logger    zerolog.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, directory Directory, logger zerolog.Logger) (*EmailNotifier, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, errors.New("smtp_host is required for email notifier")
	}
	if from == "" {
		return nil, errors.New("from is required for email notifier")
	}
	if directory == nil {
		return nil, errors.New("a user directory is required for email notifier")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &EmailNotifier{
		host:      host,
		port:      port,
		username:  strings.TrimSpace(cfg.Username),
		password:  cfg.Password,
		from:      from,
		directory: directory,
		send:      smtp.SendMail,
		logger:    logger.With().Str("notifier", "email").Logger(),
	}, nil
}

func (n *EmailNotifier) Notify(ctx context.Context, notif models.Notificacion) error {
	if !notif.Tipo.Alerta() && notif.Prioridad != models.PrioridadUrgente {
		return nil
	}
	usuario, err := n.directory.GetByID(ctx, notif.UsuarioID)
	if err != nil {
		return errors.Wrapf(err, "resolve recipient %s", notif.UsuarioID)
	}
	to := strings.TrimSpace(usuario.Email)
	if to == "" || !usuario.Activo {
		return nil
	}

	subject := fmt.Sprintf("[Taller] %s", notif.Titulo)
	body := strings.Builder{}
	body.WriteString(notif.Mensaje)
	body.WriteString("\n\n")
	body.WriteString(fmt.Sprintf("Tipo: %s\n", notif.Tipo))
	body.WriteString(fmt.Sprintf("Prioridad: %s\n", notif.Prioridad))
	if notif.OrdenID != nil {
		body.WriteString(fmt.Sprintf("Orden: %s\n", *notif.OrdenID))
	}
	body.WriteString(fmt.Sprintf("Fecha: %s\n", notif.CreadaEn.Format("2006-01-02 15:04:05 MST")))

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		n.from, to, subject)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	if err := n.send(addr, auth, n.from, []string{to}, []byte(headers+body.String())); err != nil {
		return err
	}

	n.logger.Info().
		Str("notificacion_id", notif.ID).
		Str("tipo", string(notif.Tipo)).
		Str("recipient", to).
		Msg("email notification sent")
	return nil
}

func (n *EmailNotifier) String() string {
	return "EmailNotifier"
}
