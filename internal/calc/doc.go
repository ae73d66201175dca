// Package calc prices treasury bills.
//
// T-bills are sold at a discount and pay their face value at maturity. The price
// for a yield y over d days is face / (1 + y/100 * d/365). Primary computes the
// return of holding a bill to maturity, Secondary the outcome of selling it early
// at the prevailing market yield, and CustodyFee the bank's holding fee. All
// arithmetic is decimal.
package calc
