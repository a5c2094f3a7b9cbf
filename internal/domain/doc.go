// Package domain models archived National Weather Service (NWS) VTEC events.
//
// # Identifiers
//
// A VTEC (Valid Time Event Code) event is identified by five fields: the
// year, the issuing Weather Forecast Office (WFO), the two-letter phenomenon
// (TO tornado, SV severe thunderstorm, FF flash flood, ...), the one-letter
// significance (W warning, A watch, Y advisory, ...) and the event tracking
// number (ETN), a per-office per-year counter.
//
// The canonical string form borrows the shape of a VTEC line:
//
//	YYYY-O-NEW-OFFICE-PHEN-SIG-SSSS   e.g. 2024-O-NEW-KDMX-TO-W-0045
//
// Tokens 1 and 2 ("O", "NEW") are fixed. The ETN is zero-padded to four
// digits and must lie in (0, 10000).
//
// # Office codes
//
// Links in the wild carry K-prefixed codes for offices outside the
// contiguous US (KAFG, KHFO, KJSJ, ...). The archive keys those offices as
// PAFG, PHFO, TJSJ. [NormalizeOffice] applies the correction table and every
// decode path goes through it.
//
// # Phenomenon and significance
//
// These are deliberately not validated against a vocabulary: product feeds
// occasionally carry codes that are not in the published tables.
package domain
