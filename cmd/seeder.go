package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	complianceDatamodel "github.com/guardline/payroll-engine/internal/core/datamodel/compliance"
	loanDatamodel "github.com/guardline/payroll-engine/internal/core/datamodel/loan"
	salaryDatamodel "github.com/guardline/payroll-engine/internal/core/datamodel/salary"
	"github.com/guardline/payroll-engine/internal/core/period"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := gorm.Open(gormPostgres.Open(cfg.Database.Source), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{
				"payment_request_items", "payment_requests",
				"salary_records", "loan_installments", "loans",
				"compliance_obligations",
			} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		now := time.Now()
		p := period.FromTime(now)

		// Three guards on one site: one full month, one short month, one held.
		guards := []struct {
			EmployeeID string
			Base       int64
			Attended   int
			Held       bool
		}{
			{"EMP-1001", 18000, 26, false},
			{"EMP-1002", 18000, 24, false},
			{"EMP-1003", 20000, 26, true},
		}

		for _, g := range guards {
			base := decimal.NewFromInt(g.Base)
			ratio := decimal.NewFromInt(int64(g.Attended)).Div(decimal.NewFromInt(26))
			gross := base.Mul(ratio).Round(2)
			record := salaryDatamodel.SalaryRecord{
				ID:             uuid.NewString(),
				EmployeeID:     g.EmployeeID,
				Period:         p,
				Department:     "OPERATIONS",
				AttendedShifts: g.Attended,
				TotalShifts:    26,
				BaseSalary:     base,
				Basic:          base.Mul(decimal.NewFromFloat(cfg.Payroll.BasicPct)).Round(2),
				HRA:            base.Mul(decimal.NewFromFloat(cfg.Payroll.HRAPct)).Round(2),
				Allowance:      base.Mul(decimal.NewFromFloat(cfg.Payroll.AllowancePct)).Round(2),
				Gross:          gross,
				Net:            gross,
				Status:         "READY_TO_PAY",
				ComputedAt:     now,
			}
			if g.Held {
				reason := "exit clearance pending"
				heldBy := "SEED"
				record.Status = "HELD"
				record.HoldReason = &reason
				record.HeldBy = &heldBy
			}

			result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
			if result.Error != nil {
				log.Fatalf("failed to seed salary record for %s: %v", g.EmployeeID, result.Error)
			}
			if result.RowsAffected > 0 {
				fmt.Printf("Seeded salary record: %s %s\n", g.EmployeeID, p)
			}
		}

		// An active advance with its first installment already due.
		var loanExists int
		row := db.Raw("SELECT 1 FROM loans WHERE employee_id = ? AND status = 'ACTIVE'", "EMP-1001").Row()
		if err := row.Scan(&loanExists); err != nil {
			activatedAt := now.AddDate(0, -1, 0)
			l := loanDatamodel.Loan{
				ID:             uuid.NewString(),
				EmployeeID:     "EMP-1001",
				LoanType:       "ADVANCE_SALARY",
				Principal:      decimal.NewFromInt(12000),
				EMIMonths:      6,
				MonthlySalary:  decimal.NewFromInt(18000),
				Balance:        decimal.NewFromInt(12000),
				Status:         "ACTIVE",
				AccountsStatus: "APPROVED_BY_ACCOUNTS",
				Reason:         "festival advance",
				RequestedBy:    "SEED",
				ActivatedAt:    &activatedAt,
			}
			if err := db.Create(&l).Error; err != nil {
				log.Fatalf("failed to seed loan: %v", err)
			}

			emi := l.Principal.Div(decimal.NewFromInt(int64(l.EMIMonths))).Round(2)
			for i := 0; i < l.EMIMonths; i++ {
				dueDate := activatedAt.AddDate(0, i+1, 0)
				installment := loanDatamodel.Installment{
					ID:        uuid.NewString(),
					LoanID:    l.ID,
					Sequence:  i + 1,
					DuePeriod: period.FromTime(dueDate),
					DueDate:   dueDate,
					Amount:    emi,
					Status:    "PENDING",
				}
				if err := db.Create(&installment).Error; err != nil {
					log.Fatalf("failed to seed installment %d: %v", i+1, err)
				}
			}
			fmt.Println("Seeded active advance loan for EMP-1001")
		}

		// The month's statutory obligations, due the 15th of next month.
		dueDate := time.Date(now.Year(), now.Month()+1, 15, 0, 0, 0, 0, time.Local)
		obligations := []struct {
			Type   string
			Amount int64
		}{
			{"PF", 2592},
			{"ESIC", 250},
			{"PT", 300},
		}

		for _, o := range obligations {
			obligation := complianceDatamodel.Obligation{
				ID:            uuid.NewString(),
				StatutoryType: o.Type,
				Period:        p,
				DueDate:       dueDate,
				Amount:        decimal.NewFromInt(o.Amount),
				Status:        "PENDING",
				DocumentRefs:  []string{},
			}
			result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&obligation)
			if result.Error != nil {
				log.Fatalf("failed to seed obligation %s: %v", o.Type, result.Error)
			}
			if result.RowsAffected > 0 {
				fmt.Printf("Seeded compliance obligation: %s %s\n", o.Type, p)
			}
		}

		fmt.Println("Seed data loaded successfully")
	},
}
