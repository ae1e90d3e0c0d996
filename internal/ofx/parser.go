// Package ofx reads bank and credit-card statement lines from OFX/QFX files.
package ofx

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Line is one statement entry. Amount keeps the OFX sign: debits are negative.
type Line struct {
	FITID     string
	AccountID string
	Name      string
	Amount    decimal.Decimal
	PostedAt  time.Time
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// opening tag alone on a line with its closing bracket missing
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocess fixes formatting issues some banks' exporters produce
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// Parse reads every bank and credit-card statement line from r in file order
func Parse(r io.Reader) ([]Line, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var lines []Line
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		accountID := string(stmt.BankAcctFrom.AcctID)
		for _, tx := range stmt.BankTranList.Transactions {
			lines = append(lines, convert(tx, accountID))
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		accountID := string(stmt.CCAcctFrom.AcctID)
		for _, tx := range stmt.BankTranList.Transactions {
			lines = append(lines, convert(tx, accountID))
		}
	}

	log.Debug().
		Int("lines", len(lines)).
		Int("bank_statements", bankStmts).
		Int("cc_statements", ccStmts).
		Msg("Parsed OFX file")

	return lines, nil
}

func convert(tx ofxgo.Transaction, accountID string) Line {
	amount, err := decimal.NewFromString(tx.TrnAmt.Rat.FloatString(2))
	if err != nil {
		amount = decimal.Zero
	}
	return Line{
		FITID:     string(tx.FiTID),
		AccountID: accountID,
		Name:      lineName(tx),
		Amount:    amount,
		PostedAt:  tx.DtPosted.Time.UTC(),
	}
}

// lineName prefers PAYEE, then NAME, then MEMO when NAME is generic or empty
func lineName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && strings.TrimSpace(string(tx.Payee.Name)) != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}
	name := strings.TrimSpace(string(tx.Name))
	memo := strings.TrimSpace(string(tx.Memo))
	if memo != "" && (name == "" || isGeneric(name)) {
		return memo
	}
	return name
}

func isGeneric(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
