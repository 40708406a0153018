// Package ofx reads OFX/QFX bank and credit card statements into ledger
// transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/Veraticus/financas/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// Category hints derived from the OFX transaction type.
const (
	HintInterest    = "Juros"
	HintBankFees    = "Tarifas Bancárias"
	HintWithdrawals = "Saques"
)

// Entry is one statement line ready to be imported. The transaction has no
// account yet; the importer assigns it.
type Entry struct {
	// CategoryHint names the category suggested by the transaction type, if any.
	CategoryHint string
	// Account is the statement's account number.
	Account     string
	Type        string
	Transaction model.Transaction
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file and returns its statement lines in file
// order. Lines with a zero amount are skipped.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Entry, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			entries = append(entries, p.convertList(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			entries = append(entries, p.convertList(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID))...)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(entries),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return entries, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, account string) []Entry {
	if list == nil {
		return nil
	}

	entries := make([]Entry, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		entry, ok := p.convertTransaction(ofxTx, account)
		if !ok {
			slog.Warn("Skipping zero amount OFX transaction",
				"account", account,
				"fitid", ofxTx.FiTID)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// convertTransaction converts an OFX transaction to a receipt or expense.
// OFX signs amounts: negative lines leave the account.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, account string) (Entry, bool) {
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil || amount.IsZero() {
		return Entry{}, false
	}

	kind := model.KindReceipt
	if amount.IsNegative() {
		kind = model.KindExpense
	}

	tx := model.Transaction{
		Description: p.extractMerchantName(ofxTx),
		Amount:      amount.Abs(),
		Date:        model.DateOf(ofxTx.DtPosted.Time),
		Kind:        kind,
		ExternalID:  string(ofxTx.FiTID),
		Active:      true,
	}
	if tx.Description == "" {
		tx.Description = ofxTx.TrnType.String()
	}
	if memo := strings.TrimSpace(string(ofxTx.Memo)); memo != "" && memo != tx.Description {
		tx.Notes = memo
	}
	if ofxTx.CheckNum != "" {
		tx.PaymentDescription = "Cheque " + string(ofxTx.CheckNum)
	}

	return Entry{
		Transaction:  tx,
		Account:      account,
		Type:         ofxTx.TrnType.String(),
		CategoryHint: categoryHint(ofxTx),
	}, true
}

// categoryHint names the category of bank-generated lines by their TRNTYPE.
func categoryHint(tx ofxgo.Transaction) string {
	switch tx.TrnType {
	case ofxgo.TrnTypeInt:
		return HintInterest
	case ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		return HintBankFees
	case ofxgo.TrnTypeATM:
		return HintWithdrawals
	}
	return ""
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// Prefer PAYEE if available (cleaner merchant name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)

	// Use MEMO field if NAME is generic
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}

	name = strings.TrimSpace(name)

	prefixes := []string{
		"COMPRA CARTAO DEB ",
		"COMPRA CARTAO ",
		"COMPRA ELO ",
		"COMPRA VISA ",
		"PAGTO ",
		"POS PURCHASE ",
		"DEBIT CARD PURCHASE ",
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Clean up date patterns like "DD/MM" at the beginning
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBITO",
		"CREDITO",
		"COMPRA",
		"PAGAMENTO",
		"DEBIT",
		"CREDIT",
	}
	return slices.Contains(generic, strings.ToUpper(strings.TrimSpace(name)))
}

// GetAccounts extracts the unique account numbers of the OFX file, sorted.
func (p *Parser) GetAccounts(ctx context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var accounts []string
	add := func(id ofxgo.String) {
		if id != "" && !slices.Contains(accounts, string(id)) {
			accounts = append(accounts, string(id))
		}
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankAcctFrom.AcctID)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.CCAcctFrom.AcctID)
		}
	}

	slices.Sort(accounts)
	return accounts, ctx.Err()
}
