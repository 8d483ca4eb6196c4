package extract

// invoicePrompt asks the model for one flat JSON object per product row.
// Field names are the ones parseResponse reads.
const invoicePrompt = `You extract product rows and invoice header details from an image of a GST tax invoice table.

Every row that carries an HSN/SAC number is one product. Return every such product; if a value cannot be read return null for it, but never drop the product. Rows without an HSN/SAC number are not products.
Copy numbers exactly as printed. Do not round: a net weight of 0.760 is 0.760.

Per product:
- HSNNumber: the HSN/SAC column, as a number.
- Unit: the UQC column, string or null.
- Quantity: the Net Weight column only, as a number. Never read the Gross Weight column for this.
- TaxableValue: the Amount column, number or null.
- cgst: the CGST amount column, number or null. null when IGST is charged or the amount is empty. Never read a TAX% column.
- sgst: the SGST amount column, number or null. Same rules as cgst.
- igst: the IGST amount column, number or null. null when CGST/SGST are charged.

Shared by all products of the invoice (read once, repeat on every product):
- partyName: the Name under BILLING ADDRESS. Keep a trailing comma if one is printed, even under pen marks. If the name continues on the next line, or ends with "-", join the continuation with a single space.
- VNo: the value next to TAX INVOICE NO, written as SIR-JH-<n>-<n>-<n> (prefix "SIR-").
- date: the invoice Date converted from DD/MM/YYYY to M/D/YY.
- ProductName: the whole Description column read top to bottom as one string, lines joined with a space, except that a line ending in "-" is joined without a space. Never include the word "Pair".
- grossnet: a two-element array [gross, net] holding the totals of the Gross Weight and Net Weight columns from the Total row at the bottom of the table.

Pen marks often cover values, especially weights and totals. Separate real digits from pen strokes carefully.
Do not nest objects. Answer with a JSON array of objects and nothing else.`
