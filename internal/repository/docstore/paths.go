// Package docstore holds the typed repositories over the abstract
// document store. The path layout is observable by downstream tools and
// fixed:
//
//	clients/{cid}/units/{uid}/dues/{fiscalYear}
//	clients/{cid}/projects/waterBills/bills/{period}
//	clients/{cid}/units/creditBalances
//	clients/{cid}/transactions/{txnId}
//	clients/{cid}/config/hoaDues
//	clients/{cid}/config/waterBills
//	clients/{cid}/config/access
package docstore

import "fmt"

func duesPath(clientID, unitID string, fiscalYear int) string {
	return fmt.Sprintf("clients/%s/units/%s/dues/%d", clientID, unitID, fiscalYear)
}

func waterBillPath(clientID, period string) string {
	return fmt.Sprintf("clients/%s/projects/waterBills/bills/%s", clientID, period)
}

func waterBillsCollection(clientID string) string {
	return fmt.Sprintf("clients/%s/projects/waterBills/bills", clientID)
}

func creditLedgerPath(clientID string) string {
	return fmt.Sprintf("clients/%s/units/creditBalances", clientID)
}

func transactionPath(clientID, txnID string) string {
	return fmt.Sprintf("clients/%s/transactions/%s", clientID, txnID)
}

func transactionsCollection(clientID string) string {
	return fmt.Sprintf("clients/%s/transactions", clientID)
}

func hoaConfigPath(clientID string) string {
	return fmt.Sprintf("clients/%s/config/hoaDues", clientID)
}

func waterConfigPath(clientID string) string {
	return fmt.Sprintf("clients/%s/config/waterBills", clientID)
}

func accessConfigPath(clientID string) string {
	return fmt.Sprintf("clients/%s/config/access", clientID)
}
