package ledger

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// WriteReport renders a tabular summary of the ledger: all entries followed
// by the recomputed totals. Read-only; the ledger is not mutated.
func WriteReport(w io.Writer, l *Ledger, tag language.Tag, unit currency.Unit) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ENTRADAS")
	fmt.Fprintln(tw, "Descrição\tValor")
	for _, e := range l.Incomes() {
		fmt.Fprintf(tw, "%s\t%s\n", e.Description, e.Amount.Format(tag, unit))
	}

	fmt.Fprintln(tw, "\nSAÍDAS")
	fmt.Fprintln(tw, "Categoria\tDescrição\tValor\tStatus\tVencimento")
	for _, e := range l.Expenses() {
		due := "-"
		if !e.DueDate.IsEmpty() {
			due = e.DueDate.Format(wireDateLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Category, e.Description, e.Amount.Format(tag, unit), e.Status, due)
	}

	t := l.Totals()
	fmt.Fprintln(tw, "\nRESUMO")
	fmt.Fprintf(tw, "Total de Entradas\t%s\n", t.TotalIncome.Format(tag, unit))
	fmt.Fprintf(tw, "Total de Saídas\t%s\n", t.TotalExpense.Format(tag, unit))
	saldo := t.Balance.Format(tag, unit)
	if t.Balance.IsNegative() {
		saldo += " (negativo)"
	}
	fmt.Fprintf(tw, "Saldo Final\t%s\n", saldo)

	return tw.Flush()
}
