// Package finance provides the four concrete analysis stages: document
// verification, financial analysis, investment recommendation, and risk
// assessment. Verification and financial analysis read the raw document;
// investment and risk consume the financial analysis output, with risk also
// scanning the document for indicator terms.
package finance
