package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/etnz/coinfolio"
	"github.com/etnz/coinfolio/renderer"
	"github.com/go-chi/chi/v5"
)

// maxRestoreSize is the largest backup file accepted by /restore.
const maxRestoreSize = 10 << 20

// Banner kinds.
const (
	success = "success"
	failure = "error"
)

// redirect sends the browser back to the page, with a banner if 'msg' is not empty.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, msg, kind string) {
	target := "/"
	if msg != "" {
		target += "?" + url.Values{"msg": {msg}, "kind": {kind}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithError(err).WithField("path", r.URL.Path).Debug("action failed")
	s.redirect(w, r, bannerText(err), failure)
}

// bannerText turns an error into a sentence for the user.
func bannerText(err error) string {
	switch {
	case errors.Is(err, coinfolio.ErrFormat):
		return "Error restoring data. Please check your backup file."
	case errors.Is(err, coinfolio.ErrNetwork):
		return "Error loading coins. Please try again."
	case errors.Is(err, coinfolio.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), coinfolio.ErrValidation.Error()+": ")
		r, size := utf8.DecodeRuneInString(msg)
		msg = string(unicode.ToUpper(r)) + msg[size:]
		if !strings.HasSuffix(msg, ".") {
			msg += "."
		}
		return msg
	default:
		return "Something went wrong: " + err.Error()
	}
}

// reprice fetches the live prices of the current holdings. Failures are
// logged by the refresher, the page keeps the previous prices.
func (s *Server) reprice(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	s.refresher.Refresh(ctx, s.tracker.HoldingIDs(), s.tracker.ApplySnapshot)
}

func (s *Server) addHolding(w http.ResponseWriter, r *http.Request) {
	coinID := r.FormValue("coin")
	amount, err := coinfolio.ParseQuantity(strings.TrimSpace(r.FormValue("amount")))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: please fill in all fields with positive values", coinfolio.ErrValidation))
		return
	}
	var price coinfolio.Money
	if text := strings.TrimSpace(r.FormValue("price")); text != "" {
		if price, err = coinfolio.ParseMoney(text, s.tracker.Currency()); err != nil {
			s.fail(w, r, fmt.Errorf("%w: please fill in all fields with positive values", coinfolio.ErrValidation))
			return
		}
	} else {
		price, _ = s.tracker.Autofill(coinID)
	}

	h, err := s.tracker.AddHolding(r.Context(), coinID, amount, price)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reprice(r.Context())
	s.redirect(w, r, coinfolio.AddedNotice(h.Name), success)
}

func (s *Server) removeHolding(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.RemoveHolding(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.redirect(w, r, coinfolio.RemovedNotice, success)
}

// clearPortfolio needs 'confirm=yes', set by the page once the user agreed.
func (s *Server) clearPortfolio(w http.ResponseWriter, r *http.Request) {
	confirmed := coinfolio.ConfirmFunc(func(string) bool { return r.FormValue("confirm") == "yes" })
	cleared, err := s.tracker.ClearPortfolio(r.Context(), confirmed)
	switch {
	case err != nil:
		s.fail(w, r, err)
	case !cleared:
		s.redirect(w, r, "", "")
	default:
		s.redirect(w, r, coinfolio.ClearedNotice, success)
	}
}

func (s *Server) addAlert(w http.ResponseWriter, r *http.Request) {
	target, err := coinfolio.ParseMoney(strings.TrimSpace(r.FormValue("price")), s.tracker.Currency())
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: please select a coin and enter a target price", coinfolio.ErrValidation))
		return
	}
	alert, err := s.tracker.AddAlert(r.Context(), r.FormValue("coin"), target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.redirect(w, r, coinfolio.AlertNotice(alert.CoinName, alert.TargetPrice), success)
}

func (s *Server) removeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid alert id", http.StatusBadRequest)
		return
	}
	if err := s.tracker.RemoveAlert(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.redirect(w, r, coinfolio.AlertRemovedNotice, success)
}

func (s *Server) toggleDarkMode(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tracker.ToggleDarkMode(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.redirect(w, r, "", "")
}

// attachment prepares the response for a JSON file download.
func attachment(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	attachment(w, coinfolio.ExportFilename(s.now()))
	if err := s.tracker.Export(w); err != nil {
		s.log.WithError(err).Error("export failed")
	}
}

func (s *Server) backup(w http.ResponseWriter, r *http.Request) {
	attachment(w, coinfolio.BackupFilename(s.now()))
	if err := s.tracker.Backup(w); err != nil {
		s.log.WithError(err).Error("backup failed")
	}
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRestoreSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: no backup file: %v", coinfolio.ErrFormat, err))
		return
	}
	defer file.Close()
	if err := s.tracker.Restore(r.Context(), file); err != nil {
		s.fail(w, r, err)
		return
	}
	s.reprice(r.Context())
	s.redirect(w, r, coinfolio.RestoredNotice, success)
}

func (s *Server) charts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderer.Charts(w, s.dashboard()); err != nil {
		s.log.WithError(err).Error("cannot render charts")
	}
}
