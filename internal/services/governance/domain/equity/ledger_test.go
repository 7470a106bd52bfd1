package equity

import (
	"errors"
	"testing"

	"github.com/louisbranch/moltcompany/internal/services/governance/domain/outcome"
	"github.com/shopspring/decimal"
)

func testLedger(t *testing.T) Ledger {
	t.Helper()
	ledger, err := NewLedger(testCompany(), testMembers())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return ledger
}

func applyAccepted(t *testing.T, ledger Ledger, result outcome.Outcome[Change]) Ledger {
	t.Helper()
	if !result.Accepted() {
		t.Fatalf("expected accepted change, got %q", result.Message())
	}
	next, err := ledger.Apply(result.Value)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	assertWithinTotal(t, next)
	return next
}

func assertWithinTotal(t *testing.T, ledger Ledger) {
	t.Helper()
	if ledger.Allocated().GreaterThan(ledger.Company().TotalEquity) {
		t.Fatalf("allocated %s exceeds total %s", ledger.Allocated(), ledger.Company().TotalEquity)
	}
	for _, member := range ledger.Members() {
		if member.Equity.IsNegative() {
			t.Fatalf("member %s has negative equity %s", member.AgentID, member.Equity)
		}
	}
}

func assertTransactionsMatchUpserts(t *testing.T, before Ledger, change Change) {
	t.Helper()
	deltas := map[string]decimal.Decimal{}
	for _, tx := range change.Transactions {
		deltas[tx.AgentID] = deltas[tx.AgentID].Add(tx.AmountPct)
	}
	for _, member := range change.Upserts {
		previous := decimal.Zero
		if existing, ok := before.Member(member.AgentID); ok {
			previous = existing.Equity
		}
		if got, want := deltas[member.AgentID], member.Equity.Sub(previous); !got.Equal(want) {
			t.Fatalf("transactions for %s sum to %s, want %s", member.AgentID, got, want)
		}
	}
}

func TestNewLedgerRejectsMalformedMembers(t *testing.T) {
	members := append(testMembers(), Member{AgentID: "alice", Role: RoleMember, Equity: d("0")})
	if _, err := NewLedger(testCompany(), members); !errors.Is(err, ErrInvalidMember) {
		t.Fatalf("err = %v, want invalid member", err)
	}
	members = []Member{{AgentID: "x", Role: Role("boss"), Equity: d("1")}}
	if _, err := NewLedger(testCompany(), members); !errors.Is(err, ErrInvalidMember) {
		t.Fatalf("err = %v, want invalid member", err)
	}
}

func TestLedgerJoinAdminTakesFloor(t *testing.T) {
	ledger, err := NewLedger(testCompany(), nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	result := ledger.Join("admin", RoleFounder, "", clock)
	next := applyAccepted(t, ledger, result)

	admin, ok := next.Member("admin")
	if !ok {
		t.Fatal("expected admin membership")
	}
	assertDecimal(t, "admin equity", admin.Equity, "51")
	if len(result.Value.Transactions) != 1 || result.Value.Transactions[0].Type != TransactionGrant {
		t.Fatalf("transactions = %+v, want single grant", result.Value.Transactions)
	}
	if !admin.JoinedAt.Equal(fixedNow) {
		t.Fatalf("joined at = %s, want %s", admin.JoinedAt, fixedNow)
	}
}

func TestLedgerJoinAtZeroEquityRecordsNoTransaction(t *testing.T) {
	company := testCompany()
	company.AdminFloorPct = d("0")
	company.MemberPoolPct = d("0")
	ledger, err := NewLedger(company, nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	admin := ledger.Join("admin", RoleFounder, "", clock)
	next := applyAccepted(t, ledger, admin)
	if len(admin.Value.Transactions) != 0 {
		t.Fatalf("admin transactions = %+v, want none", admin.Value.Transactions)
	}
	if _, ok := next.Member("admin"); !ok {
		t.Fatal("expected admin membership at zero equity")
	}

	member := next.Join("alice", RoleMember, "", clock)
	applyAccepted(t, next, member)
	if len(member.Value.Transactions) != 0 {
		t.Fatalf("member transactions = %+v, want none", member.Value.Transactions)
	}
}

func TestLedgerJoinAdminRequiresAdminRole(t *testing.T) {
	ledger, _ := NewLedger(testCompany(), nil)
	result := ledger.Join("admin", RoleMember, "", clock)
	if result.Accepted() || result.Rejections[0].Code != RejectionAdminRoleRequired {
		t.Fatalf("rejections = %+v, want admin role required", result.Rejections)
	}
}

func TestLedgerJoinSplitsMemberPool(t *testing.T) {
	ledger := testLedger(t)
	result := ledger.Join("carol", RoleContractor, "hired", clock)
	assertTransactionsMatchUpserts(t, ledger, result.Value)
	next := applyAccepted(t, ledger, result)

	for _, agentID := range []string{"alice", "bob", "carol"} {
		member, ok := next.Member(agentID)
		if !ok {
			t.Fatalf("missing member %s", agentID)
		}
		assertDecimal(t, agentID, member.Equity, "16.33333333")
	}
	admin, _ := next.Member("admin")
	assertDecimal(t, "admin", admin.Equity, "51")
	if got := len(next.Members()); got != 4 {
		t.Fatalf("members = %d, want 4", got)
	}
}

func TestLedgerJoinRejections(t *testing.T) {
	ledger := testLedger(t)
	tests := []struct {
		name    string
		agentID string
		role    Role
		code    string
	}{
		{"blank agent", "  ", RoleMember, RejectionAgentRequired},
		{"bad role", "carol", Role("boss"), RejectionInvalidRole},
		{"existing", "alice", RoleMember, RejectionMemberExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ledger.Join(tt.agentID, tt.role, "", clock)
			if result.Accepted() || result.Rejections[0].Code != tt.code {
				t.Fatalf("rejections = %+v, want %s", result.Rejections, tt.code)
			}
		})
	}
}

func TestLedgerLeaveReturnsEquityToTreasury(t *testing.T) {
	ledger := testLedger(t)
	result := ledger.Leave("bob", clock)
	next := applyAccepted(t, ledger, result)

	if _, ok := next.Member("bob"); ok {
		t.Fatal("bob should be removed")
	}
	assertDecimal(t, "treasury", next.Treasury(), "24.5")
	if tx := result.Value.Transactions[0]; !tx.AmountPct.Equal(d("-24.5")) || tx.Type != TransactionTransfer {
		t.Fatalf("transaction = %+v, want -24.5 transfer", tx)
	}

	if result := ledger.Leave("admin", clock); result.Accepted() || result.Rejections[0].Code != RejectionAdminCannotLeave {
		t.Fatalf("admin leave = %+v, want rejection", result.Rejections)
	}
	if result := ledger.Leave("nobody", clock); result.Accepted() || result.Rejections[0].Code != RejectionMemberNotFound {
		t.Fatalf("unknown leave = %+v, want rejection", result.Rejections)
	}
}

func TestLedgerTransferPreservesSum(t *testing.T) {
	ledger := testLedger(t)
	result := ledger.Transfer("alice", "bob", d("4.5"), "", clock)
	assertTransactionsMatchUpserts(t, ledger, result.Value)
	next := applyAccepted(t, ledger, result)

	if !next.Allocated().Equal(ledger.Allocated()) {
		t.Fatalf("allocated = %s, want %s", next.Allocated(), ledger.Allocated())
	}
	alice, _ := next.Member("alice")
	bob, _ := next.Member("bob")
	assertDecimal(t, "alice", alice.Equity, "20")
	assertDecimal(t, "bob", bob.Equity, "29")
}

func TestLedgerTransferRejections(t *testing.T) {
	ledger := testLedger(t)
	tests := []struct {
		name     string
		from, to string
		amount   string
		code     string
		message  string
	}{
		{"unknown source", "zed", "bob", "1", RejectionSourceNotFound, "Source member not found"},
		{"unknown destination", "alice", "zed", "1", RejectionDestinationNotFound, "Destination member not found"},
		{"insufficient", "alice", "bob", "30", RejectionInsufficientEquity, "Insufficient equity: 24.5% available, 30% requested"},
		{"self", "alice", "alice", "1", RejectionSelfTransfer, "Cannot transfer to self"},
		{"admin floor", "admin", "bob", "0.5", RejectionAdminFloor, "Transfer would drop admin below floor: 51% floor, 50.5% remaining"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ledger.Transfer(tt.from, tt.to, d(tt.amount), "", clock)
			if result.Accepted() {
				t.Fatal("expected rejection")
			}
			if result.Rejections[0].Code != tt.code || result.Message() != tt.message {
				t.Fatalf("rejection = %+v, want %s %q", result.Rejections[0], tt.code, tt.message)
			}
		})
	}
}

func TestLedgerGrantAndTaskRewardDrawOnTreasury(t *testing.T) {
	members := testMembers()
	members[2].Equity = d("14.5")
	ledger, err := NewLedger(testCompany(), members)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	result := ledger.Grant("bob", d("6"), "", clock)
	next := applyAccepted(t, ledger, result)
	assertDecimal(t, "treasury", next.Treasury(), "4")

	reward := next.RewardTask("alice", d("4"), "TASK-12", clock)
	next = applyAccepted(t, next, reward)
	assertDecimal(t, "treasury", next.Treasury(), "0")
	if tx := reward.Value.Transactions[0]; tx.Type != TransactionTaskReward || tx.Reason != "task reward: TASK-12" {
		t.Fatalf("transaction = %+v, want task reward", tx)
	}

	over := next.Grant("bob", d("0.1"), "", clock)
	if over.Accepted() || over.Message() != "Insufficient treasury: 0% available, 0.1% requested" {
		t.Fatalf("over grant = %+v, want insufficient treasury", over.Rejections)
	}
}

func TestLedgerIssueDilutesProportionally(t *testing.T) {
	ledger := testLedger(t)
	result := ledger.Issue(d("25"), "", clock)
	next := applyAccepted(t, ledger, result)

	assertDecimal(t, "total", next.Company().TotalEquity, "125")
	admin, _ := next.Member("admin")
	alice, _ := next.Member("alice")
	assertDecimal(t, "admin", admin.Equity, "40.8")
	assertDecimal(t, "alice", alice.Equity, "19.6")
	assertDecimal(t, "treasury", next.Treasury(), "45")

	if rejected := ledger.Issue(d("-1"), "", clock); rejected.Accepted() || rejected.Rejections[0].Code != RejectionNonPositiveIssuance {
		t.Fatalf("negative issue = %+v, want rejection", rejected.Rejections)
	}
}

func TestLedgerRebalanceMovesToTarget(t *testing.T) {
	members := testMembers()
	members[1].Equity = d("30")
	members[2].Equity = d("5")
	ledger, err := NewLedger(testCompany(), members)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	result := ledger.Rebalance("", clock)
	assertTransactionsMatchUpserts(t, ledger, result.Value)
	next := applyAccepted(t, ledger, result)
	for _, agentID := range []string{"alice", "bob"} {
		member, _ := next.Member(agentID)
		assertDecimal(t, agentID, member.Equity, "24.5")
	}
	if len(result.Value.Upserts) != 2 {
		t.Fatalf("upserts = %d, want 2 (admin already on target)", len(result.Value.Upserts))
	}
}

func TestLedgerApplyRejectsForeignChange(t *testing.T) {
	ledger := testLedger(t)
	_, err := ledger.Apply(Change{CompanyID: "other"})
	if !errors.Is(err, ErrCompanyMismatch) {
		t.Fatalf("err = %v, want company mismatch", err)
	}
}

func TestLedgerSequenceKeepsAllocationWithinTotal(t *testing.T) {
	ledger, _ := NewLedger(testCompany(), nil)
	steps := []func(Ledger) (Ledger, bool){
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Join("admin", RoleAdmin, "", clock)) },
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Join("a1", RoleMember, "", clock)) },
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Join("a2", RoleMember, "", clock)) },
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Transfer("a1", "a2", d("3"), "", clock)) },
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Join("a3", RoleContractor, "", clock)) },
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Leave("a2", clock)) },
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Grant("a3", d("5"), "", clock)) },
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Issue(d("10"), "", clock)) },
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Rebalance("", clock)) },
		func(l Ledger) (Ledger, bool) { return step(t, l, l.Grant("a1", d("1000"), "", clock)) },
	}
	accepted := 0
	for _, fn := range steps {
		var ok bool
		ledger, ok = fn(ledger)
		if ok {
			accepted++
		}
	}
	if accepted != len(steps)-1 {
		t.Fatalf("accepted = %d, want %d", accepted, len(steps)-1)
	}
}

func step(t *testing.T, ledger Ledger, result outcome.Outcome[Change]) (Ledger, bool) {
	t.Helper()
	if !result.Accepted() {
		return ledger, false
	}
	return applyAccepted(t, ledger, result), true
}
